package vendors

import (
	"github.com/andreyvit/stabledb"
)

// Service exposes the registry operations on top of a database opened with
// Schema().
type Service struct {
	vendors *stabledb.Repository[Vendor, VendorPayload]
	excess  *stabledb.Repository[Excess, ExcessPayload]
}

func NewService(db *stabledb.DB) *Service {
	return &Service{
		vendors: stabledb.Repo(db, VendorsKind),
		excess:  stabledb.Repo(db, ExcessKind),
	}
}

func (s *Service) AddVendor(p *VendorPayload) (*Vendor, error) {
	return s.vendors.Create(p)
}

func (s *Service) GetVendor(id uint64) (*Vendor, error) {
	return s.vendors.Read(id)
}

// UpdateVendor replaces the vendor's name, phone and location.
func (s *Service) UpdateVendor(id uint64, p *VendorPayload) (*Vendor, error) {
	return s.vendors.Update(id, p)
}

func (s *Service) DeleteVendor(id uint64) (*Vendor, error) {
	return s.vendors.Delete(id)
}

func (s *Service) ListVendors() ([]*Vendor, error) {
	return s.vendors.List()
}

// AddExcess records surplus stock. VendorID is stored as given and is not
// checked against existing vendors.
func (s *Service) AddExcess(p *ExcessPayload) (*Excess, error) {
	return s.excess.Create(p)
}

func (s *Service) GetExcess(id uint64) (*Excess, error) {
	return s.excess.Read(id)
}

func (s *Service) UpdateExcess(id uint64, p *ExcessPayload) (*Excess, error) {
	return s.excess.Update(id, p)
}

func (s *Service) DeleteExcess(id uint64) (*Excess, error) {
	return s.excess.Delete(id)
}

func (s *Service) ListExcess() ([]*Excess, error) {
	return s.excess.List()
}
