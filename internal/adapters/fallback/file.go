// Package fallback supplies the last-resort configuration payload from
// a static file on process-local storage.
package fallback

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/deviceautosetup/provisioning/internal/domain"
)

// FileSource reads the fallback document from a well-known path. The
// file is read on every call; freshness of edits beats caching here.
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Load returns (nil, false, nil) when the file does not exist: an absent
// fallback is a legitimate tier miss. A file that exists but does not
// decode is an error, same policy as the cache tiers.
func (s *FileSource) Load(_ context.Context) (domain.ConfigPayload, bool, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read fallback config: %w", err)
	}

	var payload domain.ConfigPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, false, fmt.Errorf("decode fallback config %s: %w", s.path, err)
	}
	return payload, true, nil
}
