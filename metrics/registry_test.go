package metrics

import "testing"

func TestRegistryGathersRegisteredMetrics(t *testing.T) {
	SessionsCreated.Inc()
	families, err := Registry.Gather()
	if err != nil {
		t.Fatal(err)
	}
	if len(families) == 0 {
		t.Fatal("expected at least one registered metric family")
	}
}

func TestHandlerServesMetrics(t *testing.T) {
	if Handler() == nil {
		t.Fatal("expected non-nil metrics handler")
	}
}
