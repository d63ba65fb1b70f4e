package sheet

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/plati-repricer/internal/digiseller"
	"github.com/fairyhunter13/plati-repricer/internal/model"
)

func testTokens() *tokenSource {
	return &tokenSource{token: "test-token", validThru: time.Now().Add(time.Hour)}
}

func newTestService(t *testing.T, mux *http.ServeMux) *Service {
	t.Helper()
	serv := httptest.NewServer(mux)
	t.Cleanup(serv.Close)
	client := newClientForTest(serv.Client(), serv.URL, testTokens())
	return NewService(client, "main-sheet", "Products", 2)
}

func writeValues(t *testing.T, w http.ResponseWriter, rows [][]any) {
	t.Helper()
	require.NoError(t, json.NewEncoder(w).Encode(map[string]any{"values": rows}))
}

func dataRow(name, productID, mode, url string) []any {
	row := make([]any, colToIndex(colExclude)+1)
	for i := range row {
		row[i] = ""
	}
	row[colToIndex(colCheck)] = "1"
	row[colToIndex(colProductName)] = name
	row[colToIndex(colProductID)] = productID
	row[colToIndex(colCompareMode)] = mode
	row[colToIndex(colListingURL)] = url
	return row
}

func TestRequestsHydratesEnabledRows(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/main-sheet/values/Products", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		disabled := dataRow("off", "3", "", "")
		disabled[colToIndex(colCheck)] = "0"
		writeValues(t, w, [][]any{
			{"banner row"},
			{"CHECK", "Product_name", "Note"},
			dataRow("Item A", "1", "compare", "https://plati.market/a"),
			disabled,
			dataRow("Item B", "2", "", ""),
			dataRow("bad", "zzz", "", ""),
		})
	})
	s := newTestService(t, mux)

	reqs, err := s.Requests(t.Context())
	require.NoError(t, err)
	require.Len(t, reqs, 2)

	// sheet rows are 1-based and follow the header row
	assert.Equal(t, 3, reqs[0].RowIndex)
	assert.Equal(t, "Item A", reqs[0].ProductName)
	assert.Equal(t, model.CompareModeStandard, reqs[0].CompareMode)
	assert.Equal(t, 5, reqs[1].RowIndex)
	assert.Equal(t, int64(2), reqs[1].ProductID)
	assert.Equal(t, model.CompareModeNone, reqs[1].CompareMode)
}

func TestRequestsHeaderMissing(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/main-sheet/values/Products", func(w http.ResponseWriter, r *http.Request) {
		writeValues(t, w, [][]any{{"no", "header"}})
	})
	s := newTestService(t, mux)

	_, err := s.Requests(t.Context())
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestHydrateAuxGroupsBySpreadsheet(t *testing.T) {
	var callsA, callsB atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/sheet-a/values:batchGet", func(w http.ResponseWriter, r *http.Request) {
		callsA.Add(1)
		ranges := r.URL.Query()["ranges"]
		assert.Len(t, ranges, 3)
		// the API echoes ranges without the quotes they were requested with
		_ = json.NewEncoder(w).Encode(map[string]any{
			"valueRanges": []map[string]any{
				{"range": "Bounds!B2", "values": [][]any{{"10,5"}}},
				{"range": "Bounds!C2", "values": [][]any{{"99.5"}}},
				{"range": "Bounds!D2", "values": [][]any{{"dumper, Cheater"}}},
			},
		})
	})
	mux.HandleFunc("/sheet-b/values:batchGet", func(w http.ResponseWriter, r *http.Request) {
		callsB.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"valueRanges": []map[string]any{
				{"range": "'Stock'!A1", "values": [][]any{{float64(17)}}},
			},
		})
	})
	s := newTestService(t, mux)

	req1 := &model.PricingRequest{
		RowIndex:     2,
		MinPriceRef:  model.CellRef{SpreadsheetID: "sheet-a", SheetName: "Bounds", Cell: "B2"},
		MaxPriceRef:  model.CellRef{SpreadsheetID: "sheet-a", SheetName: "Bounds", Cell: "C2"},
		BlacklistRef: model.CellRef{SpreadsheetID: "sheet-a", SheetName: "Bounds", Cell: "D2"},
	}
	req2 := &model.PricingRequest{
		RowIndex: 3,
		StockRef: model.CellRef{SpreadsheetID: "sheet-b", SheetName: "Stock", Cell: "A1"},
	}

	require.NoError(t, s.HydrateAux(t.Context(), []*model.PricingRequest{req1, req2}))

	assert.Equal(t, int32(1), callsA.Load())
	assert.Equal(t, int32(1), callsB.Load())

	require.NotNil(t, req1.MinPrice)
	assert.Equal(t, 10.5, *req1.MinPrice)
	require.NotNil(t, req1.MaxPrice)
	assert.Equal(t, 99.5, *req1.MaxPrice)
	assert.True(t, req1.Blacklist.Contains("DUMPER"))
	assert.True(t, req1.Blacklist.Contains("cheater"))

	require.NotNil(t, req2.Stock)
	assert.Equal(t, 17, *req2.Stock)
}

func TestHydrateAuxSharedCellFansOut(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/sheet-a/values:batchGet", func(w http.ResponseWriter, r *http.Request) {
		// the shared cell must be requested once, not per row
		assert.Len(t, r.URL.Query()["ranges"], 1)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"valueRanges": []map[string]any{
				{"range": "Bounds!B2", "values": [][]any{{"100"}}},
			},
		})
	})
	s := newTestService(t, mux)

	shared := model.CellRef{SpreadsheetID: "sheet-a", SheetName: "Bounds", Cell: "B2"}
	req1 := &model.PricingRequest{RowIndex: 2, MinPriceRef: shared}
	req2 := &model.PricingRequest{RowIndex: 3, MinPriceRef: shared}

	require.NoError(t, s.HydrateAux(t.Context(), []*model.PricingRequest{req1, req2}))

	require.NotNil(t, req1.MinPrice)
	assert.Equal(t, 100.0, *req1.MinPrice)
	require.NotNil(t, req2.MinPrice)
	assert.Equal(t, 100.0, *req2.MinPrice)
}

func TestHydrateAuxSkipsInvalidRefs(t *testing.T) {
	mux := http.NewServeMux() // any request would 404 and fail the test
	s := newTestService(t, mux)

	req := &model.PricingRequest{RowIndex: 2}
	require.NoError(t, s.HydrateAux(t.Context(), []*model.PricingRequest{req}))
	assert.Nil(t, req.MinPrice)
}

func TestWriteLogs(t *testing.T) {
	var body struct {
		ValueInputOption string `json:"valueInputOption"`
		Data             []struct {
			Range  string     `json:"range"`
			Values [][]string `json:"values"`
		} `json:"data"`
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/main-sheet/values:batchUpdate", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = w.Write([]byte("{}"))
	})
	s := newTestService(t, mux)

	logs := []model.RowLog{
		{RowIndex: 2, Note: "updated", UpdatedAt: "2026-08-30 10:00:00"},
		{RowIndex: 5, Note: "error: boom", UpdatedAt: "2026-08-30 10:00:01"},
	}
	require.NoError(t, s.WriteLogs(t.Context(), logs))

	assert.Equal(t, "USER_ENTERED", body.ValueInputOption)
	require.Len(t, body.Data, 4)
	assert.Equal(t, "Products!C2", body.Data[0].Range)
	assert.Equal(t, "updated", body.Data[0].Values[0][0])
	assert.Equal(t, "Products!D2", body.Data[1].Range)
	assert.Equal(t, "Products!C5", body.Data[2].Range)
}

func TestWriteLogsEmpty(t *testing.T) {
	s := newTestService(t, http.NewServeMux())
	require.NoError(t, s.WriteLogs(t.Context(), nil))
}

func TestExportItems(t *testing.T) {
	var cleared atomic.Bool
	var written [][]string
	mux := http.NewServeMux()
	mux.HandleFunc("/export-sheet/values/", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, ":clear") {
			cleared.Store(true)
			_, _ = w.Write([]byte("{}"))
			return
		}
		require.Equal(t, http.MethodPut, r.Method)
		var vr struct {
			Values [][]string `json:"values"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&vr))
		written = vr.Values
		_, _ = w.Write([]byte("{}"))
	})
	s := newTestService(t, mux)

	items := []digiseller.SellerItem{
		{ID: 11, Name: "Key A", Price: 9.5, Currency: "USD", InStock: 3, SalesCount: 120},
	}
	require.NoError(t, s.ExportItems(t.Context(), "export-sheet", "Items", items))

	assert.True(t, cleared.Load())
	require.Len(t, written, 2)
	assert.Equal(t, exportHeader, written[0])
	assert.Equal(t, []string{"11", "Key A", "9.5", "USD", "3", "120", "0", "0"}, written[1])
}
