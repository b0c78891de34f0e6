package places

import (
	"context"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/jeremyviracochaf-eng/evaluacionf/internal/model"
)

// WorkbookSource serves places read from the first sheet of an .xlsx workbook. The
// header row names the columns: external_id, name, description, category, location,
// province, price, image_url, lat, lon. Only name and province are mandatory.
type WorkbookSource struct {
	byProvince map[string][]Place // keyed by lower-cased province
	order      []string           // province names as first written
}

// OpenWorkbook reads all rows of the workbook at path.
func OpenWorkbook(path string) (*WorkbookSource, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return readWorkbook(f)
}

// ReadWorkbook reads a workbook from r.
func ReadWorkbook(r io.Reader) (*WorkbookSource, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return readWorkbook(f)
}

func readWorkbook(f *excelize.File) (*WorkbookSource, error) {
	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheet)
	}

	idx := headerIndex(rows[0])
	for _, col := range []string{"name", "province"} {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("sheet %q: missing %q column", sheet, col)
		}
	}
	cell := func(row []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	src := &WorkbookSource{byProvince: map[string][]Place{}}
	for n, row := range rows[1:] {
		name, province := cell(row, "name"), cell(row, "province")
		if name == "" || province == "" {
			continue
		}
		p := Place{
			ExternalID:  cell(row, "external_id"),
			Name:        name,
			Description: cell(row, "description"),
			Location:    cell(row, "location"),
			ImageURL:    cell(row, "image_url"),
		}
		if p.ExternalID == "" {
			p.ExternalID = "xlsx:" + strings.ToLower(province) + ":" + strings.ToLower(name)
		}
		for _, t := range strings.Split(cell(row, "category"), ",") {
			if t = strings.TrimSpace(t); t != "" {
				p.Types = append(p.Types, t)
			}
		}
		if raw := cell(row, "price"); raw != "" {
			price, err := strconv.ParseFloat(raw, 64)
			if err != nil || math.IsNaN(price) || price < 0 || price > model.MaxPrice {
				return nil, fmt.Errorf("sheet %q row %d: invalid price %q", sheet, n+2, raw)
			}
			p.Price = &price
		}
		p.Lat, _ = strconv.ParseFloat(cell(row, "lat"), 64)
		p.Lon, _ = strconv.ParseFloat(cell(row, "lon"), 64)

		key := strings.ToLower(province)
		if _, seen := src.byProvince[key]; !seen {
			src.order = append(src.order, province)
		}
		src.byProvince[key] = append(src.byProvince[key], p)
	}
	return src, nil
}

// Regions lists the provinces present in the workbook in first-seen order.
func (s *WorkbookSource) Regions() []Region {
	out := make([]Region, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, Region{Name: name})
	}
	return out
}

// Nearby returns the rows whose province matches the region name.
func (s *WorkbookSource) Nearby(_ context.Context, region Region) ([]Place, error) {
	return s.byProvince[strings.ToLower(strings.TrimSpace(region.Name))], nil
}

func headerIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		key = strings.ReplaceAll(key, " ", "_")
		if _, dup := idx[key]; !dup {
			idx[key] = i
		}
	}
	return idx
}
