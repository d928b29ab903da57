// Package orchestrator composes identity, save retrieval, decryption,
// parsing, RKS scoring and the leaderboard write into the single
// save-and-score request flow.
package orchestrator

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/phigros-go/phigros-backend/internal/catalog"
	"github.com/phigros-go/phigros-backend/internal/decrypt"
	"github.com/phigros-go/phigros-backend/internal/fetcher"
	"github.com/phigros-go/phigros-backend/internal/identity"
	"github.com/phigros-go/phigros-backend/internal/model"
	"github.com/phigros-go/phigros-backend/internal/parse"
	"github.com/phigros-go/phigros-backend/internal/reqid"
	"github.com/phigros-go/phigros-backend/internal/rks"
	"github.com/phigros-go/phigros-backend/internal/store"
)

// leaderboardWriteTimeout bounds the asynchronous background upsert so a
// slow or wedged database can never pin goroutines indefinitely.
const leaderboardWriteTimeout = 30 * time.Second

// Result is the full output of one save-and-score request.
type Result struct {
	UserKey  *string
	Save     *model.SaveDocument
	Rks      *model.PlayerRksResult
	PushAcc  map[rks.ChartKey]rks.PushAccTarget
}

// Orchestrator wires together the components a save request passes
// through. It is constructed once at startup and is safe for
// concurrent use.
type Orchestrator struct {
	salt     string
	fetcher  *fetcher.Fetcher
	catalog  *catalog.Catalog
	store    store.Store
}

// New builds an Orchestrator. store may be nil for deployments that
// only ever run in non-leaderboard "score this save" mode; in that case
// the background write is skipped entirely.
func New(salt string, f *fetcher.Fetcher, cat *catalog.Catalog, st store.Store) *Orchestrator {
	return &Orchestrator{salt: salt, fetcher: f, catalog: cat, store: st}
}

// SaveAndRKS runs the full pipeline: derive the pseudonymous user key,
// fetch and decrypt the save, parse it, project plays against the
// catalog into ranked charts, compute RKS, and — if a user key was
// derivable — asynchronously persist the new standing without making
// the caller wait on the write.
func (o *Orchestrator) SaveAndRKS(ctx context.Context, cred model.Credential, version fetcher.Version, calculateRKS bool) (*Result, error) {
	userKey, _ := identity.Derive(o.salt, cred)

	fetchResult, err := o.fetcher.Fetch(ctx, cred, version)
	if err != nil {
		return nil, err
	}

	container, err := decrypt.DecodeContainer(fetchResult.Bytes)
	if err != nil {
		return nil, eris.Wrap(err, "orchestrator: decode save container")
	}

	save, err := o.buildSaveDocument(fetchResult, container)
	if err != nil {
		return nil, err
	}

	result := &Result{UserKey: userKey, Save: save}
	if !calculateRKS {
		return result, nil
	}

	charts := o.projectCharts(save.GameRecord)
	rksResult := rks.Compute(charts)
	result.Rks = &rksResult
	result.PushAcc = rks.PushAccFor(charts, rksResult)

	if userKey != nil && o.store != nil {
		o.scheduleLeaderboardWrite(ctx, *userKey, rksResult)
	}

	return result, nil
}

func (o *Orchestrator) buildSaveDocument(fetchResult *fetcher.Result, container *decrypt.Container) (*model.SaveDocument, error) {
	doc := &model.SaveDocument{
		EntryErrors: make(map[string]string),
	}
	if fetchResult.UpdatedAt != nil {
		doc.UpdatedAt = *fetchResult.UpdatedAt
	}
	for name, entryErr := range container.Errors {
		doc.EntryErrors[name] = entryErr.Error()
	}

	if summary, err := parse.ParseSummaryBase64(fetchResult.SummaryB64); err != nil {
		doc.SummaryParseError = err.Error()
	} else {
		doc.Summary = summary
	}

	if raw, ok := container.Entries["gameRecord"]; ok {
		records, err := parse.ParseGameRecord(raw)
		if err != nil {
			return nil, eris.Wrap(err, "orchestrator: parse gameRecord")
		}
		doc.GameRecord = records
	}
	if raw, ok := container.Entries["gameProgress"]; ok {
		doc.GameProgress = parse.Passthrough(raw)
	}
	if raw, ok := container.Entries["user"]; ok {
		doc.User = parse.Passthrough(raw)
	}
	if raw, ok := container.Entries["settings"]; ok {
		doc.Settings = parse.Passthrough(raw)
	}
	if raw, ok := container.Entries["gameKey"]; ok {
		doc.GameKey = parse.Passthrough(raw)
	}

	return doc, nil
}

// projectCharts joins decoded plays against the catalog to produce the
// RKS engine's input; plays for songs the catalog doesn't know, or
// difficulties the song has no constant for, are silently dropped since
// they cannot be scored.
func (o *Orchestrator) projectCharts(gameRecord map[string][]model.DifficultyRecord) []model.ChartRankingScore {
	var out []model.ChartRankingScore
	for songID, plays := range gameRecord {
		entry, ok := o.catalog.ByID(songID)
		if !ok {
			continue
		}
		for _, play := range plays {
			constant, ok := entry.Constant(play.Difficulty)
			if !ok {
				continue
			}
			out = append(out, model.ChartRankingScore{
				SongID:        songID,
				Difficulty:    play.Difficulty,
				ChartConstant: constant,
				Accuracy:      float64(play.Accuracy),
				Score:         play.Score,
				IsFullCombo:   play.IsFullCombo,
			})
		}
	}
	return out
}

// scheduleLeaderboardWrite performs the leaderboard upsert in the
// background on a context rooted independently of the request's
// lifetime, so the caller's response is never delayed by it and the
// write survives the request being cancelled. Failures are logged,
// never surfaced to the caller.
func (o *Orchestrator) scheduleLeaderboardWrite(requestCtx context.Context, userKey string, result model.PlayerRksResult) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				zap.L().Error("leaderboard write panicked",
					zap.String("user_key", userKey),
					zap.Any("panic", r),
					zap.Stack("stack"),
				)
			}
		}()

		jobCtx, cancel := context.WithTimeout(context.Background(), leaderboardWriteTimeout)
		defer cancel()
		jobCtx = reqid.Propagate(requestCtx, jobCtx)

		now := time.Now().UTC().Format(time.RFC3339)
		if err := o.store.UpsertLeaderboardRKS(jobCtx, userKey, result.TotalRKS, nil, 0, false, now); err != nil {
			zap.L().Error("leaderboard upsert failed", zap.String("user_key", userKey), zap.Error(err))
			return
		}

		composition := model.RksComposition{
			Best27Sum: sumRKS(result.BestN),
			APTop3Sum: sumRKS(result.APTop3),
		}
		if err := o.store.PutDetails(jobCtx, userKey, composition, toChartTextItems(result.BestN), toChartTextItems(result.APTop3), now); err != nil {
			zap.L().Error("leaderboard details write failed", zap.String("user_key", userKey), zap.Error(err))
		}
	}()
}

func sumRKS(charts []model.ChartRankingScore) float64 {
	var sum float64
	for _, c := range charts {
		sum += c.RKS
	}
	return sum
}

func toChartTextItems(charts []model.ChartRankingScore) []model.ChartTextItem {
	items := make([]model.ChartTextItem, 0, len(charts))
	for _, c := range charts {
		items = append(items, model.ChartTextItem{
			Song:       c.SongID,
			Difficulty: c.Difficulty.String(),
			Acc:        c.Accuracy,
			RKS:        c.RKS,
		})
	}
	return items
}
