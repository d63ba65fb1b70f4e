package sheet

import (
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/fairyhunter13/plati-repricer/internal/model"
)

// The tracking sheet uses a fixed column layout. The schema below is the
// explicit, typed replacement for field-by-column duck typing: every column
// is named once, parsed once, and validated once at ingestion.
const (
	colCheck       = "A" // "1" enables the row
	colProductName = "B"
	colNote        = "C" // writeback
	colLastUpdate  = "D" // writeback
	colProductID   = "E"
	colVariantID   = "F"
	colCompareMode = "G"
	colListingURL  = "H"
	colKeywords    = "I"
	colAdjustA     = "J"
	colAdjustB     = "K"
	colPrecision   = "L"
	colMinSold     = "M"

	colMinSheetID = "N"
	colMinSheet   = "O"
	colMinCell    = "P"

	colMaxSheetID = "Q"
	colMaxSheet   = "R"
	colMaxCell    = "S"

	colStockSheetID = "T"
	colStockSheet   = "U"
	colStockCell    = "V"

	colBlackSheetID = "W"
	colBlackSheet   = "X"
	colBlackCell    = "Y"

	colInclude = "Z"
	colExclude = "AA"
)

// headerKeyColumns are the labels that identify the header row.
var headerKeyColumns = []string{"CHECK", "Product_name"}

// colToIndex converts a column letter ("A", "AA") to a 0-based index.
func colToIndex(col string) int {
	idx := 0
	for _, ch := range strings.ToUpper(col) {
		idx = idx*26 + int(ch-'A'+1)
	}
	return idx - 1
}

// cellAt returns the trimmed cell under the given column letter, or "".
func cellAt(row []string, col string) string {
	i := colToIndex(col)
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// rowValues is the typed form of one sheet row, validated before it becomes
// a PricingRequest.
type rowValues struct {
	ProductName  string `validate:"required"`
	ProductID    int64  `validate:"required,gt=0"`
	VariantID    *int64 `validate:"omitempty,gt=0"`
	CompareMode  model.CompareMode
	ListingURL   string `validate:"omitempty,url"`
	Keywords     string
	Adjustment   *model.AdjustmentRange
	Precision    int `validate:"gte=0"`
	MinSoldCount int `validate:"gte=0"`
	Include      []string
	Exclude      []string
	MinPriceRef  model.CellRef
	MaxPriceRef  model.CellRef
	StockRef     model.CellRef
	BlacklistRef model.CellRef
}

// hydrateRow parses one data row. It returns (nil, reason, nil) for rows
// that are disabled or empty, and a ValidationError for malformed ones.
func hydrateRow(v *validator.Validate, row []string, rowIndex int, defaultPrecision int) (*model.PricingRequest, string, error) {
	if cellAt(row, colCheck) != "1" {
		return nil, "row disabled", nil
	}
	name := cellAt(row, colProductName)
	if name == "" {
		return nil, "empty row", nil
	}

	vals := rowValues{ProductName: name, Precision: defaultPrecision}

	var err error
	if raw := cellAt(row, colProductID); raw != "" {
		if vals.ProductID, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return nil, "", &model.ValidationError{Field: "product_id", Reason: raw}
		}
	}
	if raw := cellAt(row, colVariantID); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, "", &model.ValidationError{Field: "variant_id", Reason: raw}
		}
		vals.VariantID = &id
	}
	if vals.CompareMode, err = model.ParseCompareMode(cellAt(row, colCompareMode)); err != nil {
		return nil, "", err
	}
	vals.ListingURL = cellAt(row, colListingURL)
	vals.Keywords = cellAt(row, colKeywords)

	adjA, okA, errA := parseOptFloat(cellAt(row, colAdjustA))
	adjB, okB, errB := parseOptFloat(cellAt(row, colAdjustB))
	if errA != nil || errB != nil {
		return nil, "", &model.ValidationError{Field: "price_adjustment", Reason: "not a number"}
	}
	if okA && okB {
		vals.Adjustment = &model.AdjustmentRange{A: adjA, B: adjB}
	}

	if raw := cellAt(row, colPrecision); raw != "" {
		if vals.Precision, err = strconv.Atoi(raw); err != nil {
			return nil, "", &model.ValidationError{Field: "price_rounding", Reason: raw}
		}
	}
	if raw := cellAt(row, colMinSold); raw != "" {
		if vals.MinSoldCount, err = strconv.Atoi(raw); err != nil {
			return nil, "", &model.ValidationError{Field: "order_sold", Reason: raw}
		}
	}

	vals.Include = splitKeywords(cellAt(row, colInclude))
	vals.Exclude = splitKeywords(cellAt(row, colExclude))
	vals.MinPriceRef = cellRefAt(row, colMinSheetID, colMinSheet, colMinCell)
	vals.MaxPriceRef = cellRefAt(row, colMaxSheetID, colMaxSheet, colMaxCell)
	vals.StockRef = cellRefAt(row, colStockSheetID, colStockSheet, colStockCell)
	vals.BlacklistRef = cellRefAt(row, colBlackSheetID, colBlackSheet, colBlackCell)

	if vals.CompareMode != model.CompareModeNone && vals.ListingURL == "" {
		return nil, "", &model.ValidationError{Field: "listing_url", Reason: "required for compare modes"}
	}

	if err := v.Struct(vals); err != nil {
		return nil, "", &model.ValidationError{Field: "row", Reason: err.Error()}
	}

	return &model.PricingRequest{
		RowIndex:        rowIndex,
		ProductName:     vals.ProductName,
		ProductID:       vals.ProductID,
		VariantID:       vals.VariantID,
		CompareMode:     vals.CompareMode,
		ListingURL:      vals.ListingURL,
		Keywords:        vals.Keywords,
		Adjustment:      vals.Adjustment,
		Precision:       vals.Precision,
		IncludeKeywords: vals.Include,
		ExcludeKeywords: vals.Exclude,
		MinSoldCount:    vals.MinSoldCount,
		MinPriceRef:     vals.MinPriceRef,
		MaxPriceRef:     vals.MaxPriceRef,
		StockRef:        vals.StockRef,
		BlacklistRef:    vals.BlacklistRef,
		Blacklist:       model.NewBlacklist(),
	}, "", nil
}

func cellRefAt(row []string, idCol, nameCol, cellCol string) model.CellRef {
	return model.CellRef{
		SpreadsheetID: cellAt(row, idCol),
		SheetName:     cellAt(row, nameCol),
		Cell:          cellAt(row, cellCol),
	}
}

func parseOptFloat(raw string) (float64, bool, error) {
	if raw == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}

func splitKeywords(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// findHeaderRow locates the row containing every key column label.
func findHeaderRow(rows [][]string) int {
	for i, row := range rows {
		found := 0
		for _, key := range headerKeyColumns {
			for _, cell := range row {
				if strings.TrimSpace(cell) == key {
					found++
					break
				}
			}
		}
		if found == len(headerKeyColumns) {
			return i
		}
	}
	return -1
}
