package sheet

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/fairyhunter13/plati-repricer/internal/digiseller"
	"github.com/fairyhunter13/plati-repricer/internal/model"
	"github.com/fairyhunter13/plati-repricer/internal/obs"
)

// Service reads pricing requests from the tracking sheet and writes
// diagnostics back.
type Service struct {
	client           *Client
	spreadsheetID    string
	sheetName        string
	defaultPrecision int
	validate         *validator.Validate
}

// NewService builds a Service over the main tracking sheet.
func NewService(client *Client, spreadsheetID, sheetName string, defaultPrecision int) *Service {
	return &Service{
		client:           client,
		spreadsheetID:    spreadsheetID,
		sheetName:        sheetName,
		defaultPrecision: defaultPrecision,
		validate:         validator.New(),
	}
}

// Requests reads the tracking sheet and hydrates every enabled row into a
// typed PricingRequest. Invalid rows are skipped with a structured reason.
func (s *Service) Requests(ctx context.Context) ([]model.PricingRequest, error) {
	rows, err := s.client.Values(ctx, s.spreadsheetID, s.sheetName)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	headerIdx := findHeaderRow(rows)
	if headerIdx < 0 {
		return nil, &model.ValidationError{
			Field:  "sheet",
			Reason: fmt.Sprintf("header row with columns %v not found", headerKeyColumns),
		}
	}

	var reqs []model.PricingRequest
	for i, row := range rows[headerIdx+1:] {
		rowIndex := headerIdx + 2 + i // 1-based sheet row
		req, skipReason, err := hydrateRow(s.validate, row, rowIndex, s.defaultPrecision)
		if err != nil {
			obs.Logger.Warn("sheet_row_invalid", "row", rowIndex, "error", err)
			continue
		}
		if req == nil {
			if skipReason != "row disabled" && skipReason != "empty row" {
				obs.Logger.Info("sheet_row_skipped", "row", rowIndex, "reason", skipReason)
			}
			continue
		}
		reqs = append(reqs, *req)
	}

	obs.Logger.Info("sheet_requests_hydrated", "count", len(reqs), "rows", len(rows)-headerIdx-1)
	return reqs, nil
}

// auxTarget maps one fetched range back onto a request field.
type auxTarget struct {
	req  *model.PricingRequest
	kind string
}

// HydrateAux bulk-fetches every request's auxiliary cells (min/max price,
// stock, blacklist), grouping ranges by spreadsheet id so each foreign
// spreadsheet is read in a single batchGet call.
func (s *Service) HydrateAux(ctx context.Context, reqs []*model.PricingRequest) error {
	bySheet := make(map[string][]string)
	targets := make(map[string]map[string][]auxTarget) // spreadsheet id -> range -> targets

	// Several rows may reference the same cell (a shared min price for a
	// product family), so each range fans out to every target registered
	// for it and is requested only once.
	addRef := func(req *model.PricingRequest, ref model.CellRef, kind string) {
		if !ref.Valid() {
			return
		}
		r := ref.Range()
		if targets[ref.SpreadsheetID] == nil {
			targets[ref.SpreadsheetID] = make(map[string][]auxTarget)
		}
		if _, seen := targets[ref.SpreadsheetID][r]; !seen {
			bySheet[ref.SpreadsheetID] = append(bySheet[ref.SpreadsheetID], r)
		}
		targets[ref.SpreadsheetID][r] = append(targets[ref.SpreadsheetID][r], auxTarget{req: req, kind: kind})
	}

	for _, req := range reqs {
		addRef(req, req.MinPriceRef, "min_price")
		addRef(req, req.MaxPriceRef, "max_price")
		addRef(req, req.StockRef, "stock")
		addRef(req, req.BlacklistRef, "blacklist")
	}

	for spreadsheetID, ranges := range bySheet {
		values, err := s.client.BatchGet(ctx, spreadsheetID, ranges)
		if err != nil {
			return err
		}
		for echoed, raw := range values {
			matched, ok := matchTargets(targets[spreadsheetID], echoed)
			if !ok || raw == "" {
				continue
			}
			for _, target := range matched {
				applyAux(target, raw)
			}
		}
	}
	return nil
}

// matchTargets resolves the API's echoed range (which may be unquoted or
// widened) back to the requested one.
func matchTargets(m map[string][]auxTarget, echoed string) ([]auxTarget, bool) {
	if t, ok := m[echoed]; ok {
		return t, true
	}
	normalized := strings.ReplaceAll(echoed, "'", "")
	for requested, t := range m {
		if strings.ReplaceAll(requested, "'", "") == normalized {
			return t, true
		}
	}
	return nil, false
}

func applyAux(t auxTarget, raw string) {
	switch t.kind {
	case "min_price":
		if v, ok, _ := parseOptFloat(raw); ok {
			t.req.MinPrice = &v
		} else {
			obs.Logger.Warn("sheet_aux_unparsable", "row", t.req.RowIndex, "kind", t.kind, "value", raw)
		}
	case "max_price":
		if v, ok, _ := parseOptFloat(raw); ok {
			t.req.MaxPrice = &v
		} else {
			obs.Logger.Warn("sheet_aux_unparsable", "row", t.req.RowIndex, "kind", t.kind, "value", raw)
		}
	case "stock":
		if v, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil {
			t.req.Stock = &v
		} else {
			obs.Logger.Warn("sheet_aux_unparsable", "row", t.req.RowIndex, "kind", t.kind, "value", raw)
		}
	case "blacklist":
		t.req.Blacklist = model.NewBlacklist(strings.Split(raw, ",")...)
	}
}

// WriteLogs writes every row's note and last-update timestamp in a single
// batched call.
func (s *Service) WriteLogs(ctx context.Context, logs []model.RowLog) error {
	if len(logs) == 0 {
		return nil
	}
	updates := make([]CellUpdate, 0, len(logs)*2)
	for _, l := range logs {
		noteRange := fmt.Sprintf("%s!%s%d", s.sheetName, colNote, l.RowIndex)
		timeRange := fmt.Sprintf("%s!%s%d", s.sheetName, colLastUpdate, l.RowIndex)
		updates = append(updates,
			CellUpdate{Range: noteRange, Values: [][]string{{l.Note}}},
			CellUpdate{Range: timeRange, Values: [][]string{{l.UpdatedAt}}},
		)
	}
	return s.client.BatchUpdate(ctx, s.spreadsheetID, updates)
}

// exportHeader is the first row of the inventory export tab.
var exportHeader = []string{
	"ID", "Product Name", "Price", "Currency", "In Stock", "Sales", "Returns", "Num Options",
}

// ExportItems clears the export tab and rewrites it with the seller's items.
func (s *Service) ExportItems(ctx context.Context, spreadsheetID, sheetName string, items []digiseller.SellerItem) error {
	if err := s.client.Clear(ctx, spreadsheetID, sheetName); err != nil {
		return err
	}

	rows := make([][]string, 0, len(items)+1)
	rows = append(rows, exportHeader)
	for _, it := range items {
		rows = append(rows, []string{
			strconv.FormatInt(it.ID, 10),
			it.Name,
			strconv.FormatFloat(it.Price, 'f', -1, 64),
			it.Currency,
			strconv.Itoa(it.InStock),
			strconv.Itoa(it.SalesCount),
			strconv.Itoa(it.Returns),
			strconv.Itoa(it.NumOptions),
		})
	}

	if err := s.client.Update(ctx, spreadsheetID, "'"+sheetName+"'!A1", rows); err != nil {
		return err
	}
	obs.Logger.Info("sheet_export_written", "count", len(items), "sheet", sheetName)
	return nil
}
