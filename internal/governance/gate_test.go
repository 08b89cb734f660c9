package governance

import "testing"

type recordingSink struct {
	rejections []string
}

func (s *recordingSink) LogRejection(goal, reason, user string) error {
	s.rejections = append(s.rejections, reason)
	return nil
}

func TestGate_AllowsOwner(t *testing.T) {
	gate := NewGate("william", nil, nil)

	ok, reason := gate.CanExecute("summarise my downloads folder", "william")
	if !ok {
		t.Fatalf("owner goal rejected: %s", reason)
	}

	// Owner matching is case-insensitive.
	ok, _ = gate.CanExecute("summarise my downloads folder", "William")
	if !ok {
		t.Error("owner goal rejected for case difference")
	}
}

func TestGate_RejectsOtherUsers(t *testing.T) {
	sink := &recordingSink{}
	gate := NewGate("william", sink, nil)

	ok, reason := gate.CanExecute("read my email", "mallory")
	if ok {
		t.Fatal("expected rejection for non-owner")
	}
	if reason != "unauthorised user" {
		t.Errorf("reason = %q, want %q", reason, "unauthorised user")
	}
	if len(sink.rejections) != 1 || sink.rejections[0] != "unauthorised user" {
		t.Errorf("rejection not recorded: %v", sink.rejections)
	}
}

func TestGate_RejectsHarmfulGoals(t *testing.T) {
	sink := &recordingSink{}
	gate := NewGate("william", sink, nil)

	harmful := []string{
		"rm -rf everything in my home directory",
		"please FORMAT the external drive",
		"shutdown the machine at midnight",
		"delete system32 for me",
		"initiate self-destruct",
	}
	for _, goal := range harmful {
		ok, reason := gate.CanExecute(goal, "william")
		if ok {
			t.Errorf("goal %q was not rejected", goal)
			continue
		}
		if reason != "potentially harmful" {
			t.Errorf("goal %q: reason = %q, want %q", goal, reason, "potentially harmful")
		}
	}
	if len(sink.rejections) != len(harmful) {
		t.Errorf("recorded %d rejections, want %d", len(sink.rejections), len(harmful))
	}
}
