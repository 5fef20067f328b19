package export

import (
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/u3dexport/pkg/scene"
)

// MaterialTable maps face material ids to the material last bound to them.
type MaterialTable struct {
	byID  map[int]*scene.Material
	maxID int
	log   *zap.Logger
}

// NewMaterialTable returns an empty table. A nil logger disables logging.
func NewMaterialTable(log *zap.Logger) *MaterialTable {
	if log == nil {
		log = zap.NewNop()
	}
	return &MaterialTable{byID: make(map[int]*scene.Material), maxID: -1, log: log}
}

// Bind records m for id. A later bind to a different material wins; faces
// already collected keep their texture number either way.
func (t *MaterialTable) Bind(id int, m *scene.Material) {
	if m == nil {
		return
	}
	if old, ok := t.byID[id]; ok && *old != *m {
		t.log.Warn("material id rebound",
			zap.Int("id", id),
			zap.String("old", old.Name),
			zap.String("new", m.Name))
	}
	t.byID[id] = m
	if id > t.maxID {
		t.maxID = id
	}
}

// Get returns the material bound to id, or nil.
func (t *MaterialTable) Get(id int) *scene.Material {
	return t.byID[id]
}

// Len returns one past the highest bound id.
func (t *MaterialTable) Len() int {
	return t.maxID + 1
}

// Slots returns a dense slice indexed by material id. Ids never bound hold
// nil.
func (t *MaterialTable) Slots() []*scene.Material {
	slots := make([]*scene.Material, t.Len())
	for id, m := range t.byID {
		slots[id] = m
	}
	return slots
}

// ParseFlags extracts the polygon flag byte from a material name. The name is
// split on spaces, tabs, commas and semicolons; a token "F=<n>" sets the
// flags, and the last such token wins.
func ParseFlags(name string) uint8 {
	var flags uint8
	tokens := strings.FieldsFunc(name, func(r rune) bool {
		return r == ' ' || r == '\t' || r == ',' || r == ';'
	})
	for _, tok := range tokens {
		if len(tok) < 2 || (tok[0] != 'F' && tok[0] != 'f') || tok[1] != '=' {
			continue
		}
		flags = uint8(atoi(tok[2:]))
	}
	return flags
}

// atoi parses a leading decimal integer and ignores the rest, returning 0
// when there is none.
func atoi(s string) int {
	s = strings.TrimLeft(s, " \t")
	neg := false
	if s != "" && (s[0] == '-' || s[0] == '+') {
		neg = s[0] == '-'
		s = s[1:]
	}
	n := 0
	for i := 0; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		n = n*10 + int(s[i]-'0')
		if n > 1<<24 {
			break
		}
	}
	if neg {
		return -n
	}
	return n
}
