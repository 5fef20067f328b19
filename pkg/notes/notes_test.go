package notes

import (
	"errors"
	"testing"
)

func TestParse_SequenceAndNotify(t *testing.T) {
	res, err := ParseAll([]Key{{Frame: 5, Text: "a Walk 30\nn Step 10"}})
	if err != nil {
		t.Fatalf("ParseAll failed: %v", err)
	}

	if len(res.Sequences) != 1 {
		t.Fatalf("expected 1 sequence, got %d", len(res.Sequences))
	}
	seq := res.Sequences[0]
	if seq.Name != "Walk" || seq.StartFrame != 5 || seq.NumFrames != 25 {
		t.Errorf("expected Walk start=5 frames=25, got %+v", seq)
	}

	if len(res.Notifies) != 1 {
		t.Fatalf("expected 1 notify, got %d", len(res.Notifies))
	}
	n := res.Notifies[0]
	if n.Function != "Step" || n.Time != "10" || n.Sequence != "Walk" {
		t.Errorf("expected Step@10 in Walk, got %+v", n)
	}
}

func TestParse_EndNotAfterStart(t *testing.T) {
	_, err := ParseAll([]Key{{Frame: 5, Text: "a Walk 3"}})
	if err == nil {
		t.Fatal("expected error for end frame before start")
	}

	var nerr *Error
	if !errors.As(err, &nerr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if nerr.Frame != 5 {
		t.Errorf("expected frame 5 in error, got %d", nerr.Frame)
	}
	if !errors.Is(err, ErrInvalidEndFrame) {
		t.Errorf("expected ErrInvalidEndFrame, got %v", err)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		keys    []Key
		wantErr error
		frame   int
	}{
		{"missing name", []Key{{Frame: 2, Text: "a"}}, ErrMissingSequenceName, 2},
		{"end equals start", []Key{{Frame: 7, Text: "a Run 7"}}, ErrInvalidEndFrame, 7},
		{"end not a number", []Key{{Frame: 0, Text: "a Run ten"}}, ErrInvalidEndFrame, 0},
		{"end missing", []Key{{Frame: 1, Text: "a Run"}}, ErrInvalidEndFrame, 1},
		{"bad rate", []Key{{Frame: 0, Text: "a Run 10 fast"}}, ErrInvalidRate, 0},
		{"notify missing function", []Key{{Frame: 0, Text: "a Run 10\nn"}}, ErrMissingNotifyFunction, 0},
		{"notify missing time", []Key{{Frame: 3, Text: "a Run 10\nn Foot"}}, ErrMissingNotifyTime, 3},
		{"notify before sequence", []Key{{Frame: 4, Text: "n Foot 1"}}, ErrNoSequence, 4},
		{"error in later key", []Key{{Frame: 0, Text: "a Idle 10"}, {Frame: 12, Text: "a Bad 11"}}, ErrInvalidEndFrame, 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseAll(tt.keys)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			var nerr *Error
			if errors.As(err, &nerr) && nerr.Frame != tt.frame {
				t.Errorf("expected frame %d, got %d", tt.frame, nerr.Frame)
			}
		})
	}
}

func TestParse_OrderAndCarryOver(t *testing.T) {
	keys := []Key{
		{Frame: 0, Text: "a Idle 10 15.0 Rest\nn Breathe 0.5"},
		{Frame: 4, Text: "n Blink 0.8"},
		{Frame: 10, Text: "A Walk 30\r\nN StepL 0.25\r\nn StepR 0.75"},
	}

	res, err := ParseAll(keys)
	if err != nil {
		t.Fatalf("ParseAll failed: %v", err)
	}

	wantSeqs := []Sequence{
		{Name: "Idle", StartFrame: 0, NumFrames: 10, Rate: "15.0", Group: "Rest"},
		{Name: "Walk", StartFrame: 10, NumFrames: 20},
	}
	if len(res.Sequences) != len(wantSeqs) {
		t.Fatalf("expected %d sequences, got %d", len(wantSeqs), len(res.Sequences))
	}
	for i, want := range wantSeqs {
		if res.Sequences[i] != want {
			t.Errorf("sequence %d: expected %+v, got %+v", i, want, res.Sequences[i])
		}
	}

	wantNotifies := []Notify{
		{Function: "Breathe", Time: "0.5", Sequence: "Idle"},
		{Function: "Blink", Time: "0.8", Sequence: "Idle"},
		{Function: "StepL", Time: "0.25", Sequence: "Walk"},
		{Function: "StepR", Time: "0.75", Sequence: "Walk"},
	}
	if len(res.Notifies) != len(wantNotifies) {
		t.Fatalf("expected %d notifies, got %d", len(wantNotifies), len(res.Notifies))
	}
	for i, want := range wantNotifies {
		if res.Notifies[i] != want {
			t.Errorf("notify %d: expected %+v, got %+v", i, want, res.Notifies[i])
		}
	}
}

func TestParse_IgnoresOtherLines(t *testing.T) {
	res, err := ParseAll([]Key{{Frame: 0, Text: "footsteps start here\n\nanim Walk 3\nx y z"}})
	if err != nil {
		t.Fatalf("ParseAll failed: %v", err)
	}
	if len(res.Sequences) != 0 || len(res.Notifies) != 0 {
		t.Errorf("expected nothing parsed, got %+v", res)
	}
}

func TestTokenize(t *testing.T) {
	tokens := Tokenize("  a   Walk\t30  ")
	want := []string{"a", "Walk", "30"}
	if len(tokens) != len(want) {
		t.Fatalf("expected %v, got %v", want, tokens)
	}
	for i := range want {
		if tokens[i] != want[i] {
			t.Errorf("token %d: expected %q, got %q", i, want[i], tokens[i])
		}
	}
}

func TestError_Message(t *testing.T) {
	err := &Error{Frame: 12, Line: "a Walk 3", Err: ErrInvalidEndFrame}
	want := `notekey #12: invalid animation endframe ("a Walk 3")`
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}
}
