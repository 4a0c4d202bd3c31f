package util_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/nasa-jpl/daqmx/util"
)

func ExampleSplitList() {
	fmt.Printf("%q\n", util.SplitList("Dev1/ai0, Dev1/ai1,Dev1/ai2 "))
	// Output: ["Dev1/ai0" "Dev1/ai1" "Dev1/ai2"]
}

func TestSplitListEmpty(t *testing.T) {
	out := util.SplitList("")
	if out == nil || len(out) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", out)
	}
	out = util.SplitList(" , ,")
	if len(out) != 0 {
		t.Errorf("expected blank entries to be dropped, got %q", out)
	}
}

func TestUniqueString(t *testing.T) {
	inp := []string{"a", "b", "c", "a"}
	expected := []string{"a", "b", "c"}
	output := util.UniqueString(inp)
	if len(output) != len(expected) {
		t.Fatalf("expected %d elements, got %d", len(expected), len(output))
	}
	for i := 0; i < len(output); i++ {
		if output[i] != expected[i] {
			t.Errorf("expected %s got %s", expected[i], output[i])
		}
	}
}

func TestSecsToDuration(t *testing.T) {
	var dur time.Duration = 123456789
	secs := dur.Seconds()
	out := util.SecsToDuration(secs)
	if out != dur {
		t.Errorf("expected SecsToDuration to round trip, output %v != expected %v", out, dur)
	}
}
