package processing

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/fueltrack/internal/common"
	"github.com/ternarybob/fueltrack/internal/models"
)

const fuelHeader = "flight_id,date,station,uplift_kg,burn_kg,density_kgl,supplier\n"
const flightHeader = "flight_no,date,origin,destination,aircraft,passengers,block_time\n"

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func testPaths(t *testing.T) (map[string]string, string, string) {
	t.Helper()
	dir := t.TempDir()
	fuelPath := filepath.Join(dir, "fuel_data.csv")
	flightPath := filepath.Join(dir, "flight_data.csv")

	writeFile(t, fuelPath, fuelHeader+
		"QF1,2025-06-01,SYD,45000,42000,0.79,Shell\n"+
		"QF2,2025-06-01,MEL,30000,28000,0.79,BP\n")
	writeFile(t, flightPath, flightHeader+
		"QF1,2025-06-01,SYD,LAX,B789,280,13:45\n")

	paths := map[string]string{
		models.CategoryFuelData:   fuelPath,
		models.CategoryFlightData: flightPath,
	}
	return paths, fuelPath, flightPath
}

func TestDetectorSeed(t *testing.T) {
	paths, _, _ := testPaths(t)
	d := newDetector(paths, common.GetLogger())

	baseline, err := d.seed()
	require.NoError(t, err)
	assert.Equal(t, 2, baseline.Counts[models.CategoryFuelData])
	assert.Equal(t, 1, baseline.Counts[models.CategoryFlightData])
	assert.Empty(t, baseline.NewRows[models.CategoryFuelData])
}

func TestDetectorReportsTrailingRowsOnGrowth(t *testing.T) {
	paths, fuelPath, _ := testPaths(t)
	d := newDetector(paths, common.GetLogger())

	baseline, err := d.seed()
	require.NoError(t, err)

	// Append two rows to the fuel file only.
	writeFile(t, fuelPath, fuelHeader+
		"QF1,2025-06-01,SYD,45000,42000,0.79,Shell\n"+
		"QF2,2025-06-01,MEL,30000,28000,0.79,BP\n"+
		"QF3,2025-06-02,BNE,20000,19000,0.80,Shell\n"+
		"QF4,2025-06-02,PER,25000,24000,0.80,BP\n")

	next, deltas, err := d.check(baseline)
	require.NoError(t, err)

	fuel := deltas[models.CategoryFuelData]
	require.Equal(t, 2, fuel.NewRecords)
	require.Len(t, fuel.NewData, 2)
	assert.Equal(t, "QF3", fuel.NewData[0]["flight_id"])
	assert.Equal(t, "QF4", fuel.NewData[1]["flight_id"])

	assert.Equal(t, 0, deltas[models.CategoryFlightData].NewRecords)
	assert.Equal(t, 4, next.Counts[models.CategoryFuelData])
}

func TestDetectorRepeatCheckReportsNothing(t *testing.T) {
	paths, _, _ := testPaths(t)
	d := newDetector(paths, common.GetLogger())

	baseline, err := d.seed()
	require.NoError(t, err)

	next, deltas, err := d.check(baseline)
	require.NoError(t, err)
	assert.Equal(t, 0, deltas[models.CategoryFuelData].NewRecords)
	assert.Equal(t, 0, deltas[models.CategoryFlightData].NewRecords)

	// Unchanged counts carry forward.
	assert.Equal(t, baseline.Counts, next.Counts)
}

func TestDetectorShrinkReplacesBaselineWithoutDelta(t *testing.T) {
	paths, fuelPath, _ := testPaths(t)
	d := newDetector(paths, common.GetLogger())

	baseline, err := d.seed()
	require.NoError(t, err)

	// Shrink to one row: no negative delta, baseline drops to the new count.
	writeFile(t, fuelPath, fuelHeader+"QF1,2025-06-01,SYD,45000,42000,0.79,Shell\n")

	next, deltas, err := d.check(baseline)
	require.NoError(t, err)
	assert.Equal(t, 0, deltas[models.CategoryFuelData].NewRecords)
	assert.Equal(t, 1, next.Counts[models.CategoryFuelData])

	// Grow back to two rows: only the net single row reports as new, the
	// shrink-then-grow edit history is invisible to the heuristic.
	writeFile(t, fuelPath, fuelHeader+
		"QF1,2025-06-01,SYD,45000,42000,0.79,Shell\n"+
		"QF9,2025-06-03,ADL,15000,14000,0.80,Ampol\n")

	_, deltas, err = d.check(next)
	require.NoError(t, err)
	require.Equal(t, 1, deltas[models.CategoryFuelData].NewRecords)
	assert.Equal(t, "QF9", deltas[models.CategoryFuelData].NewData[0]["flight_id"])
}
