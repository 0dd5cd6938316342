// Package vendors defines the records of the vendor surplus registry: vendors
// and the excess stock they report.
package vendors

import (
	"github.com/andreyvit/stabledb"
)

// Region assignments. Never renumber these without migrating existing data.
const (
	VendorsRegion stabledb.RegionID = 1
	ExcessRegion  stabledb.RegionID = 2
)

type Vendor struct {
	ID              uint64 `msgpack:"id" json:"id"`
	Name            string `msgpack:"n" json:"name"`
	Phone           string `msgpack:"p" json:"phone"`
	CurrentLocation string `msgpack:"loc" json:"current_location"`
}

type VendorPayload struct {
	Name            string `json:"name"`
	Phone           string `json:"phone"`
	CurrentLocation string `json:"current_location"`
}

// Excess is surplus stock a vendor has on hand.
type Excess struct {
	ID       uint64 `msgpack:"id" json:"id"`
	VendorID uint64 `msgpack:"v" json:"vendor_id"`
	Name     string `msgpack:"n" json:"name"`
	Amount   string `msgpack:"a" json:"amount"` // in kg
	Date     string `msgpack:"d" json:"date"`
}

type ExcessPayload struct {
	VendorID uint64 `json:"vendor_id"`
	Name     string `json:"name"`
	Amount   string `json:"amount"`
	Date     string `json:"date"`
}

var (
	schema      = stabledb.NewSchema()
	VendorsKind = stabledb.AddKind(schema, "Vendor", VendorsRegion, newVendor)
	ExcessKind  = stabledb.AddKind(schema, "Excess", ExcessRegion, newExcess)
)

// Schema returns the schema holding VendorsKind and ExcessKind.
func Schema() *stabledb.Schema {
	return schema
}

func newVendor(id uint64, p *VendorPayload) *Vendor {
	return &Vendor{
		ID:              id,
		Name:            p.Name,
		Phone:           p.Phone,
		CurrentLocation: p.CurrentLocation,
	}
}

func newExcess(id uint64, p *ExcessPayload) *Excess {
	return &Excess{
		ID:       id,
		VendorID: p.VendorID,
		Name:     p.Name,
		Amount:   p.Amount,
		Date:     p.Date,
	}
}
