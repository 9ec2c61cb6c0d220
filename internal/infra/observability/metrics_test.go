package observability

import (
	"testing"
)

func TestGetPOSSnapshot(t *testing.T) {
	m := NewMetrics()

	m.IncrCheckout("success")
	m.IncrCheckout("success")
	m.IncrCheckout("success")
	m.IncrCheckout("rejected")
	m.IncrStoreError("create_order")
	m.IncrStoreError("list_products")
	m.IncrCacheHit("report")
	m.IncrCacheMiss("report")

	snap := m.GetPOSSnapshot()
	if snap.CheckoutsCompleted != 3 {
		t.Errorf("expected 3 completed checkouts, got %d", snap.CheckoutsCompleted)
	}
	if snap.CheckoutsFailed != 1 {
		t.Errorf("expected 1 failed checkout, got %d", snap.CheckoutsFailed)
	}
	if snap.CheckoutErrorRate != 0.25 {
		t.Errorf("expected error rate 0.25, got %f", snap.CheckoutErrorRate)
	}
	if snap.StoreErrors != 2 {
		t.Errorf("expected 2 store errors, got %d", snap.StoreErrors)
	}
	if snap.ReportCacheHitRate != 0.5 {
		t.Errorf("expected hit rate 0.5, got %f", snap.ReportCacheHitRate)
	}
}

func TestGetPOSSnapshot_Empty(t *testing.T) {
	snap := NewMetrics().GetPOSSnapshot()
	if snap.CheckoutErrorRate != 0 || snap.ReportCacheHitRate != 0 {
		t.Errorf("expected zero rates on fresh metrics, got %+v", snap)
	}
}
