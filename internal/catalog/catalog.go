// Package catalog loads the per-material supplier data files and serves them
// from an immutable in-memory snapshot. Reload swaps the whole snapshot
// atomically so concurrent readers never observe a partially-loaded catalog.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/prisma-build/procurement-api/internal/types"
)

// ErrUnknownMaterial marks a material id the catalog has no data for
// (a client error, distinct from a broken data file).
var ErrUnknownMaterial = errors.New("unknown material")

// ErrCorruptData marks an unreadable or malformed supplier data file
// (an internal error).
var ErrCorruptData = errors.New("corrupt supplier data")

// ErrSupplierNotFound marks a quote request for a supplier id that is not
// listed under the requested material.
var ErrSupplierNotFound = errors.New("supplier not found")

// errFileMissing distinguishes an absent data file (tolerated) from a broken
// one (fatal).
var errFileMissing = errors.New("supplier data file missing")

// materialFiles maps canonical material ids to their data files.
var materialFiles = map[string]string{
	"cement": "cement_suppliers.json",
	"sand":   "sand_suppliers.json",
	"gravel": "gravel_suppliers.json",
	"bricks": "bricks_suppliers.json",
}

// materialAliases folds commercial material codes onto canonical ids.
var materialAliases = map[string]string{
	"cement_opc_53":  "cement",
	"sand_river":     "sand",
	"aggregate":      "gravel",
	"aggregate_20mm": "gravel",
	"bricks_red":     "bricks",
}

// materialFile is the on-disk shape of one supplier data file.
type materialFile struct {
	MaterialID   string           `json:"material_id"`
	MaterialName string           `json:"material_name"`
	Suppliers    []types.Supplier `json:"suppliers"`
}

// snapshot is one immutable generation of catalog data.
type snapshot struct {
	suppliers map[string][]types.Supplier // canonical material id → records
	byID      map[string]types.Supplier   // supplier id → record
}

// Catalog owns the current snapshot. All lookups copy records out so callers
// can annotate them (distance, allocations) without touching shared state.
type Catalog struct {
	dataDir string
	logger  *logrus.Logger
	current atomic.Pointer[snapshot]
}

// New loads every material data file under dataDir. A missing file leaves its
// material empty (the sandbox may ship a subset); a malformed file fails the
// whole load with ErrCorruptData.
func New(dataDir string, logger *logrus.Logger) (*Catalog, error) {
	c := &Catalog{dataDir: dataDir, logger: logger}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// Reload re-reads all data files and atomically replaces the snapshot.
// On error the previous snapshot stays in place.
func (c *Catalog) Reload() error {
	next := &snapshot{
		suppliers: make(map[string][]types.Supplier, len(materialFiles)),
		byID:      make(map[string]types.Supplier),
	}

	for material, filename := range materialFiles {
		path := filepath.Join(c.dataDir, filename)
		records, err := loadMaterialFile(path, material)
		if err != nil {
			if errors.Is(err, errFileMissing) {
				c.logger.WithFields(logrus.Fields{
					"material": material,
					"path":     path,
				}).Warn("Supplier data file missing, material will be empty")
				next.suppliers[material] = nil
				continue
			}
			return err
		}

		next.suppliers[material] = records
		for _, s := range records {
			next.byID[s.SupplierID] = s
		}
	}

	c.current.Store(next)
	c.logger.WithFields(logrus.Fields{
		"materials": len(next.suppliers),
		"suppliers": len(next.byID),
	}).Info("Supplier catalog loaded")
	return nil
}

func loadMaterialFile(path, material string) ([]types.Supplier, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", errFileMissing, path)
		}
		return nil, fmt.Errorf("%w: read %s for %s: %v", ErrCorruptData, path, material, err)
	}

	var file materialFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptData, path, err)
	}

	for i, s := range file.Suppliers {
		if s.SupplierID == "" {
			return nil, fmt.Errorf("%w: %s: supplier at index %d has no supplier_id", ErrCorruptData, path, i)
		}
		if s.StockTons < 0 || s.PricePerTon < 0 || s.LeadTimeDays < 0 {
			return nil, fmt.Errorf("%w: %s: supplier %s has negative stock, price or lead time", ErrCorruptData, path, s.SupplierID)
		}
		if s.Rating < 0 || s.Rating > 5 {
			return nil, fmt.Errorf("%w: %s: supplier %s rating %v outside [0,5]", ErrCorruptData, path, s.SupplierID, s.Rating)
		}
	}

	return file.Suppliers, nil
}

// Resolve maps a requested material id (or commercial alias) onto the
// canonical id, or reports ErrUnknownMaterial.
func Resolve(material string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(material))
	if _, ok := materialFiles[key]; ok {
		return key, nil
	}
	if canonical, ok := materialAliases[key]; ok {
		return canonical, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMaterial, material)
}

// SuppliersByMaterial returns a copy of the records for one material.
func (c *Catalog) SuppliersByMaterial(material string) ([]types.Supplier, error) {
	canonical, err := Resolve(material)
	if err != nil {
		return nil, err
	}

	snap := c.current.Load()
	records := snap.suppliers[canonical]
	out := make([]types.Supplier, len(records))
	copy(out, records)
	return out, nil
}

// SupplierByID finds one supplier within a material's records.
func (c *Catalog) SupplierByID(material, supplierID string) (types.Supplier, error) {
	records, err := c.SuppliersByMaterial(material)
	if err != nil {
		return types.Supplier{}, err
	}

	for _, s := range records {
		if s.SupplierID == supplierID {
			return s, nil
		}
	}
	return types.Supplier{}, fmt.Errorf("%w: %q for material %q", ErrSupplierNotFound, supplierID, material)
}

// Materials lists the canonical material ids, sorted.
func (c *Catalog) Materials() []string {
	snap := c.current.Load()
	out := make([]string, 0, len(snap.suppliers))
	for m := range snap.suppliers {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// Size reports the total number of supplier records in the snapshot.
func (c *Catalog) Size() int {
	return len(c.current.Load().byID)
}
