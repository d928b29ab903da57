package parse

import (
	"github.com/rotisserie/eris"

	"github.com/phigros-go/phigros-backend/internal/model"
)

// flagFullCombo is bit 0 of a per-difficulty record's flags byte.
const flagFullCombo = 1 << 0

// ParseGameRecord decodes the repeated song/difficulty block:
//
//	repeated { u8 name_len; utf8 name; u8 difficulty_mask;
//	           [per set bit, ascending]: u32 score_le; f32 acc_le; u8 flags }
//
// A record with score == 0 and accuracy == 0 is treated as absent and
// dropped, not as a zero-scored play. For difficulty_mask bits outside
// {EZ,HD,IN,AT} the payload is read and discarded.
func ParseGameRecord(raw []byte) (map[string][]model.DifficultyRecord, error) {
	c := newCursor(raw)
	out := make(map[string][]model.DifficultyRecord)

	for c.remaining() > 0 {
		nameLen, err := c.u8()
		if err != nil {
			return nil, eris.Wrap(err, "parse: gameRecord name_len")
		}
		nameBytes, err := c.take(int(nameLen))
		if err != nil {
			return nil, eris.Wrap(err, "parse: gameRecord name")
		}
		name := string(nameBytes)

		mask, err := c.u8()
		if err != nil {
			return nil, eris.Wrapf(err, "parse: gameRecord difficulty_mask for %s", name)
		}

		var records []model.DifficultyRecord
		for bit := 0; bit < 8; bit++ {
			if mask&(1<<uint(bit)) == 0 {
				continue
			}
			diff, ok := model.DifficultyFromIndex(bit)
			if !ok {
				// Unknown difficulty bit: the fields still occupy space in
				// the stream and must be consumed to stay aligned, even
				// though the record itself is discarded.
				if _, err := c.take(4 + 4 + 1); err != nil {
					return nil, eris.Wrapf(err, "parse: gameRecord unknown-difficulty payload for %s", name)
				}
				continue
			}

			score, err := c.u32LE()
			if err != nil {
				return nil, eris.Wrapf(err, "parse: gameRecord score for %s", name)
			}
			acc, err := c.f32LE()
			if err != nil {
				return nil, eris.Wrapf(err, "parse: gameRecord accuracy for %s", name)
			}
			flags, err := c.u8()
			if err != nil {
				return nil, eris.Wrapf(err, "parse: gameRecord flags for %s", name)
			}

			if score == 0 && acc == 0 {
				continue
			}

			records = append(records, model.DifficultyRecord{
				Difficulty:  diff,
				Score:       score,
				Accuracy:    acc,
				IsFullCombo: flags&flagFullCombo != 0,
			})
		}

		if len(records) > 0 {
			out[name] = append(out[name], records...)
		}
	}

	return out, nil
}
