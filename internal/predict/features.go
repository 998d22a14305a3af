package predict

import (
	"hash/fnv"
	"time"

	"github.com/linnemanlabs/servicesense/internal/entity"
)

// EncodingVersion names the category/department encoding tables below. Bump
// it whenever a table entry changes, since trained models depend on the
// exact values.
const EncodingVersion = "enc-v1"

// Explicit encodings for known codes. Hash-derived encodings are not stable
// across processes, so everything the default catalog can emit is pinned
// here; only codes introduced after training fall through to the FNV path.
var categoryEncoding = map[string]float64{
	"SDOT_POTHOLE":      1,
	"SDOT_STREETLIGHT":  2,
	"SDOT_SIGN":         3,
	"SDOT_SIGNAL":       4,
	"SPU_GRAFFITI":      5,
	"SPU_DUMPING":       6,
	"SPU_TREE":          7,
	"PARKING_ABANDONED": 8,
	"PARKING_VIOLATION": 9,
	"NOISE_COMPLAINT":   10,
	"GENERAL_REQUEST":   11,
}

var departmentEncoding = map[string]float64{
	"SDOT":             1,
	"SPU":              2,
	"PARKING":          3,
	"POLICE":           4,
	"CUSTOMER_SERVICE": 5,
}

// neighborhoodDensity is a placeholder until per-neighborhood request
// density is joined in from the graph store.
const neighborhoodDensity = 5

// features builds the fixed-order 10-feature vector the models were trained
// on. Only the month and weekday fields vary for identical inputs, and only
// across calendar days.
func features(categoryCode, department string, entities *entity.Summary, analogueMean float64, now time.Time) []float64 {
	weekday := float64((int(now.Weekday()) + 6) % 7) // Monday=0 .. Sunday=6

	hasLocation := 0.0
	if entities.HasLocation() {
		hasLocation = 1
	}
	isWeekend := 0.0
	if weekday >= 5 {
		isWeekend = 1
	}

	return []float64{
		encode(categoryEncoding, categoryCode, 100),
		encode(departmentEncoding, department, 20),
		float64(now.Month()),
		weekday,
		isWeekend,
		hasLocation,
		float64(len(entities.UrgencyIndicators)),
		entities.Severity.Score(),
		analogueMean,
		neighborhoodDensity,
	}
}

func encode(table map[string]float64, code string, mod uint32) float64 {
	if v, ok := table[code]; ok {
		return v
	}
	h := fnv.New32a()
	h.Write([]byte(code))
	return float64(h.Sum32() % mod)
}
