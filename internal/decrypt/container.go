package decrypt

import (
	"archive/zip"
	"bytes"
	"io"

	"github.com/rotisserie/eris"
)

// requiredEntries are the container entries the pipeline expects; any of
// them may be absent or fail to decrypt without aborting the decode
// (the caller decides whether a missing gameRecord is fatal).
var requiredEntries = []string{"gameRecord", "gameProgress", "user", "settings", "gameKey"}

// Container is the decoded form of a save blob: the successfully
// decrypted plaintext per entry, plus a diagnostic per entry that failed.
type Container struct {
	Entries map[string][]byte
	Errors  map[string]error
}

// DecodeContainer reads a ZIP-like save blob and decrypts each of its
// recognized entries. A malformed ZIP structure is a fatal error; a
// failure to decrypt one entry is recorded in Errors and decoding
// continues with the remaining entries, mirroring the teacher's
// extractZIP "skip what you can't use, keep going" shape.
func DecodeContainer(blob []byte) (*Container, error) {
	r, err := zip.NewReader(bytes.NewReader(blob), int64(len(blob)))
	if err != nil {
		return nil, eris.Wrap(err, "decrypt: open container")
	}

	raw := make(map[string][]byte, len(r.File))
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, eris.Wrapf(err, "decrypt: open container entry %s", f.Name)
		}
		data, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return nil, eris.Wrapf(err, "decrypt: read container entry %s", f.Name)
		}
		raw[f.Name] = data
	}

	out := &Container{
		Entries: make(map[string][]byte, len(requiredEntries)),
		Errors:  make(map[string]error),
	}
	for _, name := range requiredEntries {
		payload, ok := raw[name]
		if !ok {
			out.Errors[name] = entryErr(ErrUnknownEntry, name, eris.New("entry absent from container"))
			continue
		}
		plaintext, err := DecryptEntry(name, payload)
		if err != nil {
			out.Errors[name] = err
			continue
		}
		out.Entries[name] = plaintext
	}
	return out, nil
}
