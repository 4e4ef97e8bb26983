package document

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
	"howett.net/plist"

	"github.com/msageha/installwatch/internal/faults"
)

// Parse decodes document bytes into a Value. The format is chosen by the
// path's extension: .json and .yaml/.yml use their respective decoders,
// everything else (including .plist and extensionless paths) is treated as a
// property list, which covers both XML and binary plist encodings.
func Parse(path string, content []byte) (Value, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		var raw any
		if err := json.Unmarshal(content, &raw); err != nil {
			return Null(), faults.Wrap(faults.KindDocumentParse, fmt.Errorf("json %s: %w", path, err))
		}
		return FromAny(raw), nil
	case ".yaml", ".yml":
		var raw any
		if err := yaml.Unmarshal(content, &raw); err != nil {
			return Null(), faults.Wrap(faults.KindDocumentParse, fmt.Errorf("yaml %s: %w", path, err))
		}
		return FromAny(raw), nil
	default:
		var raw any
		if _, err := plist.Unmarshal(content, &raw); err != nil {
			return Null(), faults.Wrap(faults.KindDocumentParse, fmt.Errorf("plist %s: %w", path, err))
		}
		return FromAny(raw), nil
	}
}
