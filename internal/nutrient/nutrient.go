// Package nutrient is the typed nutrient enumeration used by the core.
//
// Nutrients are identified by ID, the numeric nutrient id of the Canadian
// Nutrient File (208 = energy in kcal, 203 = protein, ...). Free-text names
// only appear at the edges: the repository stores ids, and HTTP input goes
// through Lookup, which normalizes a name or alias into an ID.
package nutrient

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ID is a canonical nutrient identifier.
type ID int

// Well-known nutrients. Values are the CNF NutrientID column.
const (
	Protein       ID = 203
	TotalFat      ID = 204
	Carbohydrate  ID = 205
	Ash           ID = 207
	EnergyKcal    ID = 208
	Moisture      ID = 255
	EnergyKJ      ID = 268
	Sugars        ID = 269
	Fibre         ID = 291
	Calcium       ID = 301
	Iron          ID = 303
	Magnesium     ID = 304
	Potassium     ID = 306
	Sodium        ID = 307
	Zinc          ID = 309
	VitaminC      ID = 401
	Cholesterol   ID = 601
	SaturatedFat  ID = 606
	TransFat      ID = 605
	AlcoholEthyl  ID = 221
	VitaminD      ID = 339
	VitaminB12    ID = 418
	FolateDietary ID = 435
)

// Definition describes a nutrient as the database names it.
type Definition struct {
	ID      ID
	Name    string // canonical CNF name, upper case
	Unit    string
	Aliases []string
}

var definitions = []Definition{
	{ID: Protein, Name: "PROTEIN", Unit: "g"},
	{ID: TotalFat, Name: "FAT (TOTAL LIPIDS)", Unit: "g", Aliases: []string{"fat", "total fat"}},
	{ID: Carbohydrate, Name: "CARBOHYDRATE, TOTAL (BY DIFFERENCE)", Unit: "g", Aliases: []string{"carbs", "carbohydrate", "carbohydrates"}},
	{ID: Ash, Name: "ASH, TOTAL", Unit: "g"},
	{ID: EnergyKcal, Name: "ENERGY (KILOCALORIES)", Unit: "kCal", Aliases: []string{"calories", "kcal", "energy"}},
	{ID: Moisture, Name: "MOISTURE", Unit: "g", Aliases: []string{"water"}},
	{ID: EnergyKJ, Name: "ENERGY (KILOJOULES)", Unit: "kJ", Aliases: []string{"kilojoules", "kj"}},
	{ID: Sugars, Name: "SUGARS, TOTAL", Unit: "g", Aliases: []string{"sugar", "sugars"}},
	{ID: Fibre, Name: "FIBRE, TOTAL DIETARY", Unit: "g", Aliases: []string{"fiber", "fibre"}},
	{ID: Calcium, Name: "CALCIUM", Unit: "mg"},
	{ID: Iron, Name: "IRON", Unit: "mg"},
	{ID: Magnesium, Name: "MAGNESIUM", Unit: "mg"},
	{ID: Potassium, Name: "POTASSIUM", Unit: "mg"},
	{ID: Sodium, Name: "SODIUM", Unit: "mg", Aliases: []string{"salt"}},
	{ID: Zinc, Name: "ZINC", Unit: "mg"},
	{ID: VitaminC, Name: "VITAMIN C", Unit: "mg"},
	{ID: Cholesterol, Name: "CHOLESTEROL", Unit: "mg"},
	{ID: SaturatedFat, Name: "FATTY ACIDS, SATURATED, TOTAL", Unit: "g", Aliases: []string{"saturated fat"}},
	{ID: TransFat, Name: "FATTY ACIDS, TRANS, TOTAL", Unit: "g", Aliases: []string{"trans fat"}},
	{ID: AlcoholEthyl, Name: "ALCOHOL", Unit: "g"},
	{ID: VitaminD, Name: "VITAMIN D (D2 + D3)", Unit: "µg", Aliases: []string{"vitamin d"}},
	{ID: VitaminB12, Name: "VITAMIN B-12", Unit: "µg", Aliases: []string{"vitamin b12"}},
	{ID: FolateDietary, Name: "FOLATE, DIETARY FOLATE EQUIVALENTS", Unit: "DFE", Aliases: []string{"folate"}},
}

var (
	byID   = make(map[ID]Definition, len(definitions))
	byName = make(map[string]ID, len(definitions)*2)
)

func init() {
	for _, d := range definitions {
		byID[d.ID] = d
		byName[Normalize(d.Name)] = d.ID
		for _, a := range d.Aliases {
			byName[Normalize(a)] = d.ID
		}
	}
}

// Normalize folds a nutrient name to the form used for lookups:
// NFKC, upper case, single spaces.
func Normalize(name string) string {
	name = norm.NFKC.String(name)
	return strings.ToUpper(strings.Join(strings.Fields(name), " "))
}

// Lookup resolves a nutrient name, alias or numeric id.
//
// Exact names and aliases win. Otherwise the input may abbreviate exactly
// one canonical name: "FIBRE" finds "FIBRE, TOTAL DIETARY", while "C" or
// "VITAMIN" start several names and resolve to nothing.
func Lookup(name string) (ID, bool) {
	n := Normalize(name)
	if n == "" {
		return 0, false
	}
	if id, ok := LookupExact(n); ok {
		return id, true
	}
	if v, err := strconv.Atoi(n); err == nil && v > 0 {
		return ID(v), true
	}
	if v, ok := strings.CutPrefix(n, "NUTRIENT "); ok {
		if id, err := strconv.Atoi(v); err == nil && id > 0 {
			return ID(id), true
		}
	}

	var found []ID
	for _, d := range definitions {
		if strings.HasPrefix(d.Name, n) {
			found = append(found, d.ID)
		}
	}
	if len(found) != 1 {
		return 0, false
	}
	return found[0], true
}

// LookupExact resolves a canonical name or alias after normalization,
// without abbreviations or numeric ids.
func LookupExact(name string) (ID, bool) {
	id, ok := byName[Normalize(name)]
	return id, ok
}

// Known reports whether id is in the built-in table.
func Known(id ID) bool {
	_, ok := byID[id]
	return ok
}

// Definitions returns the built-in table ordered by id.
func Definitions() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Name returns the canonical name, or "NUTRIENT <id>" for ids outside the table.
func (id ID) Name() string {
	if d, ok := byID[id]; ok {
		return d.Name
	}
	return fmt.Sprintf("NUTRIENT %d", int(id))
}

// Unit returns the unit of the per-100 g amount, or "" when unknown.
func (id ID) Unit() string {
	return byID[id].Unit
}

func (id ID) String() string { return id.Name() }

// MarshalText makes IDs render as names, including as JSON map keys.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.Name()), nil
}

// UnmarshalText accepts anything Lookup accepts.
func (id *ID) UnmarshalText(text []byte) error {
	v, ok := Lookup(string(text))
	if !ok {
		return fmt.Errorf("nutrient: unknown nutrient %q", string(text))
	}
	*id = v
	return nil
}
