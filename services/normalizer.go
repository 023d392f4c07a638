package services

import (
	"strings"

	"matchain-gc/models"
)

// Normalizer turns untyped sheet cells into a Record.
type Normalizer struct{}

// NewNormalizer creates a Normalizer.
func NewNormalizer() *Normalizer { return &Normalizer{} }

// Record builds the normalised record for row i of sheet.
func (n *Normalizer) Record(sheet *models.Sheet, i int) *models.Record {
	return &models.Record{
		Index:           i,
		CompanyID:       normaliseCode(sheet.Cell(i, models.ColCompanyID)),
		DistrictCode:    normaliseCode(sheet.Cell(i, models.ColDistrictCode)),
		Latitude:        normaliseCell(sheet.Cell(i, models.ColLatitude)),
		Longitude:       normaliseCell(sheet.Cell(i, models.ColLongitude)),
		ResultCode:      normaliseCode(sheet.Cell(i, models.ColResultCode)),
		NameEditFlag:    normaliseCode(sheet.Cell(i, models.ColNameEditFlag)),
		AddressEditFlag: normaliseCode(sheet.Cell(i, models.ColAddressEditFlag)),
		BusinessName:    normaliseCell(sheet.Cell(i, models.ColBusinessName)),
		BusinessAddress: normaliseCell(sheet.Cell(i, models.ColBusinessAddress)),
		Status:          normaliseCell(sheet.Cell(i, models.ColStatus)),
	}
}

// normaliseCell trims and maps spreadsheet "nan" placeholders to empty.
func normaliseCell(s string) string {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "nan") {
		return ""
	}
	return s
}

// normaliseCode also strips the ".0" suffix spreadsheets add to integers
// stored as floats ("99.0" -> "99").
func normaliseCode(s string) string {
	s = normaliseCell(s)
	return strings.TrimSuffix(s, ".0")
}
