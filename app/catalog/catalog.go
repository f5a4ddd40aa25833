package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/skybox-cloud/ms-go-billing/app/entity"
)

var ErrPlanNotFound = errors.New("plan not found")

// Catalog is the static plan table, loaded once at startup and read-only
// afterwards.
type Catalog struct {
	byID    map[string]entity.Plan
	ordered []entity.Plan
}

type plansFile struct {
	Plans map[string]struct {
		Amount int64  `json:"amount"`
		Quota  string `json:"quota"`
	} `json:"plans"`
}

func Load(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plans file: %w", err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Catalog, error) {
	var file plansFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse plans file: %w", err)
	}
	if len(file.Plans) == 0 {
		return nil, errors.New("plans file contains no plans")
	}

	byID := make(map[string]entity.Plan, len(file.Plans))
	byAmount := make(map[int64]string, len(file.Plans))
	ordered := make([]entity.Plan, 0, len(file.Plans))
	for id, p := range file.Plans {
		if p.Amount <= 0 {
			return nil, fmt.Errorf("plan %q has non-positive amount %d", id, p.Amount)
		}
		if p.Quota == "" {
			return nil, fmt.Errorf("plan %q has no quota", id)
		}
		// Duplicate prices would make amount-based resolution ambiguous.
		if other, ok := byAmount[p.Amount]; ok {
			return nil, fmt.Errorf("plans %q and %q share amount %d", other, id, p.Amount)
		}
		byAmount[p.Amount] = id

		plan := entity.Plan{ID: id, Amount: p.Amount, Quota: p.Quota}
		byID[id] = plan
		ordered = append(ordered, plan)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Amount < ordered[j].Amount })

	return &Catalog{byID: byID, ordered: ordered}, nil
}

func (c *Catalog) ByID(id string) (entity.Plan, error) {
	plan, ok := c.byID[id]
	if !ok {
		return entity.Plan{}, ErrPlanNotFound
	}
	return plan, nil
}

// ByAmount is the fallback for callbacks that carry an amount but no plan
// identifier. Load rejects duplicate prices, so the match is unambiguous.
func (c *Catalog) ByAmount(amount int64) (entity.Plan, error) {
	for _, plan := range c.ordered {
		if plan.Amount == amount {
			return plan, nil
		}
	}
	return entity.Plan{}, ErrPlanNotFound
}

func (c *Catalog) Plans() []entity.Plan {
	items := make([]entity.Plan, len(c.ordered))
	copy(items, c.ordered)
	return items
}
