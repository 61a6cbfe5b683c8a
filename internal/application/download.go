package application

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"media-courier-bot/internal/domain"
	"media-courier-bot/internal/domain/model"
	"media-courier-bot/internal/domain/ports/adapter"
	"media-courier-bot/internal/infra/logging"
	"media-courier-bot/internal/infra/worker"
	"media-courier-bot/internal/jobs"
)

const (
	KindVideo = "video"
	KindMusic = "music"
	KindAnime = "anime"
)

var (
	videoExtensions = []string{"mp4", "mkv", "webm", "mov"}
	audioExtensions = []string{"mp3", "m4a", "opus", "ogg", "webm"}
)

// videoFormat caps the stream height and falls back to the best single file.
func videoFormat(height string) string {
	return fmt.Sprintf("bv*[height<=%[1]s]+ba/b[height<=%[1]s]", height)
}

func (b *BotFacade) cookiesPath() string {
	if b.Cookies == nil {
		return ""
	}
	if p, ok := b.Cookies.CookiesPath(); ok {
		return p
	}
	return ""
}

// startJob runs spec in the background pool, or inline when there is none.
func (b *BotFacade) startJob(ctx context.Context, spec jobs.Spec) error {
	return b.submit(ctx, spec.ConversationID, spec.Title, func(ctx context.Context) error {
		b.runJob(ctx, spec)
		return nil
	})
}

func (b *BotFacade) submit(ctx context.Context, conv int64, title string, task worker.Task) error {
	if b.Supervisor == nil {
		return fmt.Errorf("start job: %w", domain.ErrDownloaderUnavailable)
	}
	if b.Pool == nil {
		return task(ctx)
	}
	if err := b.Pool.Submit(task); err != nil {
		return fmt.Errorf("queue job %q: %w", title, err)
	}
	b.reply(ctx, conv, b.Translator.T("job_queued", title))
	return nil
}

// runJob supervises the download, then delivers and records every item.
func (b *BotFacade) runJob(ctx context.Context, spec jobs.Spec) {
	res := b.Supervisor.Run(ctx, spec)
	conv := spec.ConversationID
	for _, out := range res.Outcomes {
		rec := &model.DownloadRecord{
			ID:             uuid.NewString(),
			ConversationID: conv,
			SessionID:      res.SessionID,
			Kind:           spec.Kind,
			Title:          out.Label,
			Source:         out.Metadata["source"],
			Success:        out.Success,
			Reason:         out.Reason,
			SizeBytes:      out.SizeBytes,
			CreatedAt:      time.Now().UTC(),
		}
		switch {
		case !out.Success:
			b.reply(ctx, conv, b.Translator.T("item_failed", out.Label, out.Reason))
		default:
			if err := b.deliver(ctx, spec, out); err != nil {
				rec.Success = false
				rec.Reason = "delivery failed"
				b.reply(ctx, conv, b.Translator.T("error_delivery", out.Label))
			}
		}
		b.record(ctx, rec)
	}
}

// deliver uploads the artifact. The temporary copy is released only after a
// successful upload; otherwise the workdir janitor reclaims it later.
func (b *BotFacade) deliver(ctx context.Context, spec jobs.Spec, out jobs.Outcome) error {
	conv := spec.ConversationID
	var err error
	if spec.Kind == KindMusic {
		b.presence(ctx, conv, adapter.PresenceUploadAudio)
		_, err = b.Transport.SendAudio(ctx, conv, out.ArtifactPath, out.Label)
	} else {
		b.presence(ctx, conv, adapter.PresenceUploadDocument)
		_, err = b.Transport.SendDocument(ctx, conv, out.ArtifactPath, out.Label)
	}
	l := logging.With(ctx, b.log)
	if err != nil {
		l.Warn().Err(err).Str("item", out.Label).Str("path", out.ArtifactPath).Msg("failed to deliver artifact, keeping temporary copy")
		return err
	}
	if rerr := jobs.ReleaseArtifact(out.ArtifactPath); rerr != nil {
		l.Debug().Err(rerr).Str("path", out.ArtifactPath).Msg("failed to release artifact")
	}
	return nil
}

// Characters yt-dlp or common filesystems treat specially in an output name.
var unsafeNameChars = strings.NewReplacer(
	"/", "_", "\\", "_", ":", "_", "*", "_", "?", "_",
	"\"", "_", "<", "_", ">", "_", "|", "_", "%", "",
)

const maxStemRunes = 80

// artifactStem builds the file name stem passed to the downloader so the
// produced file can be found by name, e.g. "Some Title [abc123]".
func artifactStem(title, id string) string {
	stem := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, unsafeNameChars.Replace(title))
	stem = strings.Trim(strings.TrimSpace(stem), ".")
	if r := []rune(stem); len(r) > maxStemRunes {
		stem = strings.TrimSpace(string(r[:maxStemRunes]))
	}
	if stem == "" {
		stem = "download"
	}
	if id = unsafeNameChars.Replace(strings.TrimSpace(id)); id != "" {
		stem += " [" + id + "]"
	}
	return stem
}

// outputTemplate lets the downloader pick the extension for stem.
func outputTemplate(stem string) string { return stem + ".%(ext)s" }

func (b *BotFacade) record(ctx context.Context, rec *model.DownloadRecord) {
	if b.History == nil {
		return
	}
	if err := b.History.Record(ctx, rec); err != nil {
		logging.With(ctx, b.log).Warn().Err(err).Str("session_id", rec.SessionID).Msg("failed to record history")
	}
}
