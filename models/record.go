package models

import "strings"

// Column names of the input sheet.
const (
	ColCompanyID       = "perusahaan_id"
	ColDistrictCode    = "kdkab"
	ColLatitude        = "latitude"
	ColLongitude       = "longitude"
	ColResultCode      = "hasilgc"
	ColNameEditFlag    = "edit_nama"
	ColAddressEditFlag = "edit_alamat"
	ColBusinessName    = "nama_usaha"
	ColBusinessAddress = "alamat_usaha"
	ColStatus          = "status_upload"
)

// RequiredColumns must all be present in a sheet before any row is processed.
var RequiredColumns = []string{
	ColCompanyID, ColDistrictCode, ColLatitude, ColLongitude, ColResultCode,
	ColNameEditFlag, ColAddressEditFlag, ColBusinessName, ColBusinessAddress,
}

// Status values written back to the status column.
const (
	StatusSuccess       = "berhasil"
	StatusFailedPrefix  = "gagal"
	StatusInvalidPrefix = "Invalid: "

	// markerCheckedByOther is set by the portal when another user already
	// ground-checked the company.
	markerCheckedByOther = "sudah diground check oleh user lain"
)

// Record is one normalised input row ready for validation and submission.
type Record struct {
	Index int // zero-based row position in the sheet

	CompanyID       string
	DistrictCode    string
	Latitude        string
	Longitude       string
	ResultCode      string
	NameEditFlag    string
	AddressEditFlag string
	BusinessName    string
	BusinessAddress string

	Status string
}

// AlreadyDone reports whether the status marks the row as finished by an
// earlier run or by another user.
func AlreadyDone(status string) bool {
	s := strings.ToLower(strings.TrimSpace(status))
	return s == StatusSuccess || strings.Contains(s, markerCheckedByOther)
}
