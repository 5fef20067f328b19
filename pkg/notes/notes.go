// Package notes parses timeline annotations into animation sequences and
// notification events.
//
// Each annotation is a text blob attached to an absolute frame. Every line is
// one directive:
//
//	a <name> <endFrame> [<rate>] [<group>]   start a sequence at this frame
//	n <function> <time>                      notify within the last sequence
//
// Directive letters are case-insensitive. Other lines are ignored.
package notes

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Annotation syntax errors.
var (
	ErrMissingSequenceName   = errors.New("missing animation name")
	ErrInvalidEndFrame       = errors.New("invalid animation endframe")
	ErrInvalidRate           = errors.New("invalid animation rate")
	ErrMissingNotifyFunction = errors.New("missing notify name")
	ErrMissingNotifyTime     = errors.New("missing notify time")
	ErrNoSequence            = errors.New("notify without a preceding animation")
)

// Error reports a syntax error tagged with the annotation's frame.
type Error struct {
	Frame int
	Line  string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("notekey #%d: %v (%q)", e.Frame, e.Err, e.Line)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Key is one annotation: free text attached to an absolute frame.
type Key struct {
	Frame int
	Text  string
}

// Sequence is a named range of the flat frame timeline.
type Sequence struct {
	Name       string
	StartFrame int
	NumFrames  int
	Rate       string // optional, kept as written
	Group      string // optional
}

// Notify is a named event at a time within a sequence.
type Notify struct {
	Function string
	Time     string
	Sequence string
}

// Parser consumes annotations in timeline order. The most recent sequence
// carries over between annotations so a notify may follow in a later key.
type Parser struct {
	sequences []Sequence
	notifies  []Notify
	current   string // name of the last sequence, empty before the first
}

// NewParser returns an empty parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse consumes one annotation. Output from earlier lines of the same
// annotation is kept when a later line fails.
func (p *Parser) Parse(key Key) error {
	for _, line := range strings.Split(key.Text, "\n") {
		line = strings.TrimRight(line, "\r")
		if err := p.parseLine(key.Frame, line); err != nil {
			return &Error{Frame: key.Frame, Line: line, Err: err}
		}
	}
	return nil
}

func (p *Parser) parseLine(frame int, line string) error {
	tokens := Tokenize(line)
	if len(tokens) == 0 {
		return nil
	}

	switch strings.ToLower(tokens[0]) {
	case "a":
		return p.parseSequence(frame, tokens[1:])
	case "n":
		return p.parseNotify(tokens[1:])
	}
	return nil
}

func (p *Parser) parseSequence(frame int, args []string) error {
	name := arg(args, 0)
	if name == "" {
		return ErrMissingSequenceName
	}

	endText := arg(args, 1)
	end, err := strconv.Atoi(endText)
	if err != nil {
		return fmt.Errorf("%w (%q)", ErrInvalidEndFrame, endText)
	}
	if end <= frame {
		return fmt.Errorf("%w (%d)", ErrInvalidEndFrame, end)
	}

	rate := arg(args, 2)
	if rate != "" {
		if _, err := strconv.ParseFloat(rate, 32); err != nil {
			return fmt.Errorf("%w (%q)", ErrInvalidRate, rate)
		}
	}

	p.sequences = append(p.sequences, Sequence{
		Name:       name,
		StartFrame: frame,
		NumFrames:  end - frame,
		Rate:       rate,
		Group:      arg(args, 3),
	})
	p.current = name
	return nil
}

func (p *Parser) parseNotify(args []string) error {
	function := arg(args, 0)
	if function == "" {
		return ErrMissingNotifyFunction
	}
	time := arg(args, 1)
	if time == "" {
		return ErrMissingNotifyTime
	}
	if p.current == "" {
		return ErrNoSequence
	}

	p.notifies = append(p.notifies, Notify{
		Function: function,
		Time:     time,
		Sequence: p.current,
	})
	return nil
}

// Sequences returns the parsed sequences in encounter order.
func (p *Parser) Sequences() []Sequence {
	return p.sequences
}

// Notifies returns the parsed notifications in encounter order.
func (p *Parser) Notifies() []Notify {
	return p.notifies
}

// Result holds everything parsed from a set of annotations.
type Result struct {
	Sequences []Sequence
	Notifies  []Notify
}

// ParseAll parses annotations in order and stops at the first error.
func ParseAll(keys []Key) (*Result, error) {
	p := NewParser()
	for _, key := range keys {
		if err := p.Parse(key); err != nil {
			return nil, err
		}
	}
	return &Result{Sequences: p.Sequences(), Notifies: p.Notifies()}, nil
}

// Tokenize splits a directive line on whitespace.
func Tokenize(line string) []string {
	return strings.Fields(line)
}

func arg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}
