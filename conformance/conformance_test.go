package conformance

import "testing"

func TestSeedScenariosPass(t *testing.T) {
	results, err := Run("testdata")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(results) == 0 {
		t.Fatalf("Run() returned no scenarios; expected the seed fixtures under testdata/")
	}
	for _, r := range results {
		if !r.Passed {
			t.Errorf("%s (%s): %s", r.Name, r.File, r.Reason)
		}
	}
}
