package catalogue

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/dltctl/internal/dlt"
	"github.com/rs/zerolog/log"
)

type filePDU struct {
	Type        string `toml:"type"`
	Length      int    `toml:"length"`
	Description string `toml:"description"`
}

type fileFrame struct {
	ID   int64     `toml:"id"`
	App  string    `toml:"app"`
	Ctx  string    `toml:"ctx"`
	Ecu  string    `toml:"ecu"`
	Type string    `toml:"type"`
	PDUs []filePDU `toml:"pdu"`
}

type fileCatalogue struct {
	Frames []fileFrame `toml:"frame"`
}

// Warning is a non-fatal problem found while loading a catalogue file.
type Warning struct {
	Path   string
	Reason string
}

func (w Warning) String() string {
	return w.Path + ": " + w.Reason
}

// Load builds a catalogue from files and directories. Directories contribute
// every *.toml file they contain in lexical order.
func Load(paths ...string) (*Catalogue, []Warning, error) {
	c := New()
	var warnings []Warning
	for _, p := range paths {
		files, err := expand(p)
		if err != nil {
			return nil, nil, err
		}
		for _, f := range files {
			w, err := c.LoadFile(f)
			if err != nil {
				return nil, nil, err
			}
			warnings = append(warnings, w...)
		}
	}
	log.Debug().Int("frames", c.Len()).Int("ids", c.IDs()).Int("warnings", len(warnings)).Msg("catalogue loaded")
	return c, warnings, nil
}

func expand(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("catalogue %s: %w", path, err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	files, err := filepath.Glob(filepath.Join(path, "*.toml"))
	if err != nil {
		return nil, fmt.Errorf("catalogue %s: %w", path, err)
	}
	sort.Strings(files)
	return files, nil
}

// LoadFile adds the frames of one TOML file. Unknown keys, invalid frames and
// duplicates are reported as warnings.
func (c *Catalogue) LoadFile(path string) ([]Warning, error) {
	var raw fileCatalogue
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return nil, fmt.Errorf("load catalogue: %w", err)
	}

	var warnings []Warning
	warn := func(format string, a ...any) {
		w := Warning{Path: path, Reason: fmt.Sprintf(format, a...)}
		log.Warn().Str("path", path).Msg(w.Reason)
		warnings = append(warnings, w)
	}
	for _, key := range meta.Undecoded() {
		warn("unknown key %s", key.String())
	}

	for i, ff := range raw.Frames {
		f, err := ff.frame()
		if err != nil {
			warn("frame %d: %v", i, err)
			continue
		}
		if !c.Add(f) {
			warn("duplicate frame %s", f)
		}
	}
	return warnings, nil
}

func (ff fileFrame) frame() (Frame, error) {
	if ff.ID < 0 || ff.ID > 0xFFFFFFFF {
		return Frame{}, fmt.Errorf("id %d out of range", ff.ID)
	}
	f := Frame{
		ID:    uint32(ff.ID),
		AppID: strings.TrimSpace(ff.App),
		CtxID: strings.TrimSpace(ff.Ctx),
		EcuID: strings.TrimSpace(ff.Ecu),
		Type:  dlt.Unknown,
	}
	for _, id := range []string{f.AppID, f.CtxID, f.EcuID} {
		if len(id) > dlt.IDLen {
			return Frame{}, fmt.Errorf("identifier %q longer than %d characters", id, dlt.IDLen)
		}
	}
	if s := strings.TrimSpace(ff.Type); s != "" {
		t, ok := dlt.ParseMessageType(s)
		if !ok {
			return Frame{}, fmt.Errorf("unknown message type %q", s)
		}
		f.Type = t
	}
	for j, p := range ff.PDUs {
		if p.Description == "" && strings.TrimSpace(p.Type) == "" {
			return Frame{}, fmt.Errorf("pdu %d has neither type nor description", j)
		}
		if p.Length < 0 {
			return Frame{}, fmt.Errorf("pdu %d has negative length", j)
		}
		f.PDUs = append(f.PDUs, PDU{Type: strings.TrimSpace(p.Type), Length: p.Length, Description: p.Description})
	}
	return f, nil
}
