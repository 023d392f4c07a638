package services

import (
	"strings"
	"testing"

	"matchain-gc/models"
)

func validRecord() *models.Record {
	return &models.Record{
		CompanyID:       "C-1",
		DistrictCode:    "01",
		Latitude:        "-4.5",
		Longitude:       "100.5",
		ResultCode:      "1",
		NameEditFlag:    "0",
		AddressEditFlag: "0",
	}
}

func testGeofence() models.GeofenceTable {
	return models.GeofenceTable{"01": {MinLon: 100, MinLat: -5, MaxLon: 101, MaxLat: -4}}
}

func messages(errs []ValidationError) string {
	return JoinErrors(errs)
}

func TestValidateValidRecord(t *testing.T) {
	if errs := Validate(validRecord(), testGeofence()); len(errs) != 0 {
		t.Errorf("valid record produced errors: %s", messages(errs))
	}
}

func TestValidateCollectsAllViolations(t *testing.T) {
	rec := &models.Record{
		DistrictCode:    "123",
		ResultCode:      "2",
		NameEditFlag:    "x",
		AddressEditFlag: "1",
		BusinessName:    "Toko",
	}
	errs := Validate(rec, nil)
	got := messages(errs)

	for _, want := range []string{
		"perusahaan_id kosong",
		"kdkab harus 2 digit (ditemukan: 123)",
		"hasilgc invalid (2), harus ['1', '3', '4', '99']",
		"edit_nama invalid (x), harus ['0', '1']",
		"nama_usaha terisi tapi edit_nama bukan 1",
		"alamat_usaha kosong tapi edit_alamat bukan 0",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in %q", want, got)
		}
	}
	if !strings.HasPrefix(got, "Invalid: ") {
		t.Errorf("joined message should start with \"Invalid: \", got %q", got)
	}
}

func TestValidateEditFlagConsistency(t *testing.T) {
	tests := []struct {
		name, flag string
		wantErr    bool
	}{
		{"", "0", false},
		{"Toko", "1", false},
		{"Toko", "0", true},
		{"", "1", true},
	}
	for _, tt := range tests {
		for _, field := range []string{"name", "address"} {
			rec := validRecord()
			if field == "name" {
				rec.BusinessName, rec.NameEditFlag = tt.name, tt.flag
			} else {
				rec.BusinessAddress, rec.AddressEditFlag = tt.name, tt.flag
			}
			got := len(Validate(rec, nil)) > 0
			if got != tt.wantErr {
				t.Errorf("%s value=%q flag=%q: inconsistency=%v; want %v", field, tt.name, tt.flag, got, tt.wantErr)
			}
		}
	}
}

func TestValidateGeofence(t *testing.T) {
	tests := []struct {
		lat, lon string
		want     string
	}{
		{"-4.5", "100.5", ""},
		{"-5", "101", ""},
		{"-4.5", "102", "Long (102) di luar 01"},
		{"-3.9", "100.5", "Lat (-3.9) di luar 01"},
		{"abc", "100.5", "Format Lat/Long invalid."},
		{"", "", "Format Lat/Long invalid."},
	}
	for _, tt := range tests {
		rec := validRecord()
		rec.Latitude, rec.Longitude = tt.lat, tt.lon
		got := ""
		if errs := Validate(rec, testGeofence()); len(errs) > 0 {
			got = errs[0].Message
		}
		if got != tt.want {
			t.Errorf("(%s,%s): got %q; want %q", tt.lat, tt.lon, got, tt.want)
		}
	}
}

func TestValidateGeofenceDistrictLookup(t *testing.T) {
	rec := validRecord()
	rec.DistrictCode = "1"
	errs := Validate(rec, testGeofence())
	// "1" is flagged for length but still resolves to "01" and passes the box check.
	if len(errs) != 1 || !strings.Contains(errs[0].Message, "kdkab harus 2 digit") {
		t.Errorf("district '1': got %q", messages(errs))
	}

	rec.DistrictCode = "07"
	errs = Validate(rec, testGeofence())
	if len(errs) != 1 || errs[0].Message != "Kode kab 07 tidak ada di bbox map." {
		t.Errorf("unmapped district: got %q", messages(errs))
	}
}

func TestValidateNoGeofenceTable(t *testing.T) {
	rec := validRecord()
	rec.Latitude, rec.Longitude = "not", "numbers"
	if errs := Validate(rec, models.GeofenceTable{}); len(errs) != 0 {
		t.Errorf("empty table must disable location rule, got %q", messages(errs))
	}
}
