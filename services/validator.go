package services

// validator.go checks one record against the ground-check business rules and
// the district geofence. Every rule group runs; all violations are reported.

import (
	"fmt"
	"strconv"
	"strings"

	"matchain-gc/models"
)

var (
	validResultCodes = []string{"1", "3", "4", "99"}
	validEditFlags   = []string{"0", "1"}
)

// ValidationError is a single rule violation.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string { return e.Message }

// Validator is the ValidationEngine. It holds no mutable state.
type Validator struct {
	geofence models.GeofenceTable
}

// NewValidator creates a Validator. An empty or nil table disables the
// geofence rule.
func NewValidator(geofence models.GeofenceTable) *Validator {
	return &Validator{geofence: geofence}
}

// Validate returns every violation of rec.
func (v *Validator) Validate(rec *models.Record) []ValidationError {
	return Validate(rec, v.geofence)
}

// Validate is the pure form of Validator.Validate.
func Validate(rec *models.Record, geofence models.GeofenceTable) []ValidationError {
	var errs []ValidationError
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if rec.CompanyID == "" {
		add(models.ColCompanyID, "perusahaan_id kosong")
	}

	if rec.DistrictCode == "" {
		add(models.ColDistrictCode, "kdkab kosong")
	} else if len(rec.DistrictCode) != 2 {
		add(models.ColDistrictCode, "kdkab harus 2 digit (ditemukan: %s)", rec.DistrictCode)
	}

	if !oneOf(rec.ResultCode, validResultCodes) {
		add(models.ColResultCode, "hasilgc invalid (%s), harus %s", rec.ResultCode, quoteList(validResultCodes))
	}

	if !oneOf(rec.NameEditFlag, validEditFlags) {
		add(models.ColNameEditFlag, "edit_nama invalid (%s), harus %s", rec.NameEditFlag, quoteList(validEditFlags))
	}
	if !oneOf(rec.AddressEditFlag, validEditFlags) {
		add(models.ColAddressEditFlag, "edit_alamat invalid (%s), harus %s", rec.AddressEditFlag, quoteList(validEditFlags))
	}

	if rec.BusinessName != "" && rec.NameEditFlag != "1" {
		add(models.ColNameEditFlag, "nama_usaha terisi tapi edit_nama bukan 1")
	} else if rec.BusinessName == "" && rec.NameEditFlag != "0" {
		add(models.ColNameEditFlag, "nama_usaha kosong tapi edit_nama bukan 0")
	}
	if rec.BusinessAddress != "" && rec.AddressEditFlag != "1" {
		add(models.ColAddressEditFlag, "alamat_usaha terisi tapi edit_alamat bukan 1")
	} else if rec.BusinessAddress == "" && rec.AddressEditFlag != "0" {
		add(models.ColAddressEditFlag, "alamat_usaha kosong tapi edit_alamat bukan 0")
	}

	if len(geofence) > 0 && rec.DistrictCode != "" {
		errs = append(errs, validateLocation(rec, geofence)...)
	}

	return errs
}

func validateLocation(rec *models.Record, geofence models.GeofenceTable) []ValidationError {
	code := zeroPad2(rec.DistrictCode)
	box, ok := geofence[code]
	if !ok {
		return []ValidationError{{Field: models.ColDistrictCode, Message: fmt.Sprintf("Kode kab %s tidak ada di bbox map.", code)}}
	}

	lat, errLat := strconv.ParseFloat(rec.Latitude, 64)
	lon, errLon := strconv.ParseFloat(rec.Longitude, 64)
	if errLat != nil || errLon != nil {
		return []ValidationError{{Field: models.ColLatitude, Message: "Format Lat/Long invalid."}}
	}

	var errs []ValidationError
	if !box.ContainsLat(lat) {
		errs = append(errs, ValidationError{Field: models.ColLatitude, Message: fmt.Sprintf("Lat (%s) di luar %s", formatCoord(lat), code)})
	}
	if !box.ContainsLon(lon) {
		errs = append(errs, ValidationError{Field: models.ColLongitude, Message: fmt.Sprintf("Long (%s) di luar %s", formatCoord(lon), code)})
	}
	return errs
}

// JoinErrors renders violations for the status column.
func JoinErrors(errs []ValidationError) string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Message
	}
	return models.StatusInvalidPrefix + strings.Join(msgs, "; ")
}

// Rules is the operator-facing description printed at startup.
const Rules = `
    =======================================================
    ATURAN VALIDASI DATA:
    1. perusahaan_id : Wajib terisi.
    2. kdkab         : Wajib terisi (2 digit).
    3. hasilgc       : Harus salah satu dari ['1', '3', '4', '99'].
    4. edit_nama     : Harus '0' atau '1'.
    5. edit_alamat   : Harus '0' atau '1'.
    6. Konsistensi   :
       - Jika nama_usaha terisi, edit_nama harus '1'.
       - Jika nama_usaha kosong, edit_nama harus '0'.
       - Jika alamat_usaha terisi, edit_alamat harus '1'.
       - Jika alamat_usaha kosong, edit_alamat harus '0'.
    7. Lokasi        : Latitude & Longitude harus berada dalam
                       wilayah kabupaten (berdasarkan kolom kdkab).
    =======================================================
`

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

func quoteList(vals []string) string {
	quoted := make([]string, len(vals))
	for i, v := range vals {
		quoted[i] = "'" + v + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func zeroPad2(code string) string {
	if len(code) >= 2 {
		return code
	}
	return strings.Repeat("0", 2-len(code)) + code
}

func formatCoord(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
