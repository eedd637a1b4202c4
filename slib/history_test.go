package slib

import "testing"

func TestHistoryBounded(t *testing.T) {
	h := NewHistory(3)
	for i := 0; i < 5; i++ {
		h.Add("/bin/true", ExecResult{Code: OK, ExecMem: i})
	}

	recent := h.Recent()
	if len(recent) != 3 {
		t.Fatalf("history held %d records, expected 3", len(recent))
	}
	// newest first
	if recent[0].Result.ExecMem != 4 {
		t.Logf("newest record had mem %d, expected 4", recent[0].Result.ExecMem)
		t.Fail()
	}
	if recent[2].Result.ExecMem != 2 {
		t.Logf("oldest retained record had mem %d, expected 2", recent[2].Result.ExecMem)
		t.Fail()
	}
}

func TestHistoryDefaults(t *testing.T) {
	h := NewHistory(0)
	h.Add("/bin/true", ExecResult{Code: OK})
	if len(h.Recent()) != 1 {
		t.Log("history with default sizing dropped a record")
		t.Fail()
	}
}
