package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"media-courier-bot/internal/conversation"
	"media-courier-bot/internal/domain"
	"media-courier-bot/internal/domain/model"
	"media-courier-bot/internal/domain/ports/adapter"
	"media-courier-bot/internal/infra/logging"
)

func fileLines(files []model.StoredFile) string {
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = fmt.Sprintf("%s (%s)", f.Name, humanize.IBytes(uint64(f.Size)))
	}
	return numbered(names)
}

func (b *BotFacade) handleFilesCommand(ctx context.Context, in Inbound, _ string) error {
	if b.Files == nil {
		return fmt.Errorf("file store: %w", domain.ErrNotFound)
	}
	files, err := b.Files.List(ctx)
	if err != nil {
		return fmt.Errorf("list files: %w", err)
	}
	if len(files) == 0 {
		b.reply(ctx, in.ConversationID, b.Translator.T("no_files"))
		return nil
	}
	return b.offerFiles(ctx, in.ConversationID, files)
}

func (b *BotFacade) offerFiles(ctx context.Context, conv int64, files []model.StoredFile) error {
	if err := b.States.Set(ctx, conv, model.FileSelection{Files: files}); err != nil {
		return err
	}
	b.reply(ctx, conv, fileLines(files))
	b.reply(ctx, conv, b.Translator.T("prompt_file_selection", len(files)))
	return nil
}

func (b *BotFacade) onFileSelection(ctx context.Context, conv int64, entry model.StateEntry, text string) error {
	st, ok := entry.State.(model.FileSelection)
	if !ok {
		return fmt.Errorf("file selection: unexpected state %T", entry.State)
	}
	idx, err := conversation.ParseIndex(text, len(st.Files))
	if err != nil {
		return err
	}
	if err := b.States.Clear(ctx, conv); err != nil {
		return err
	}
	f := st.Files[idx]
	b.presence(ctx, conv, adapter.PresenceUploadDocument)
	if _, err := b.Transport.SendDocument(ctx, conv, f.Path, f.Name); err != nil {
		logging.With(ctx, b.log).Warn().Err(err).Str("file", f.Name).Msg("failed to send stored file")
		b.reply(ctx, conv, b.Translator.T("error_delivery", f.Name))
	}
	return nil
}

func (b *BotFacade) handleDeleteCommand(ctx context.Context, in Inbound, _ string) error {
	if b.Files == nil {
		return fmt.Errorf("file store: %w", domain.ErrNotFound)
	}
	files, err := b.Files.List(ctx)
	if err != nil {
		return fmt.Errorf("list files: %w", err)
	}
	if len(files) == 0 {
		b.reply(ctx, in.ConversationID, b.Translator.T("no_files"))
		return nil
	}
	if err := b.States.Set(ctx, in.ConversationID, model.DeleteConfirmation{Files: files}); err != nil {
		return err
	}
	b.reply(ctx, in.ConversationID, b.Translator.T("prompt_delete_confirmation", len(files), humanize.IBytes(uint64(totalSize(files)))))
	return nil
}

// onDeleteConfirmation removes every listed file on YES and goes back to the
// file list on NO.
func (b *BotFacade) onDeleteConfirmation(ctx context.Context, conv int64, entry model.StateEntry, text string) error {
	st, ok := entry.State.(model.DeleteConfirmation)
	if !ok {
		return fmt.Errorf("delete confirmation: unexpected state %T", entry.State)
	}
	switch {
	case conversation.IsYes(text):
		deleted := 0
		for _, f := range st.Files {
			if err := b.Files.Delete(ctx, f.Name); err != nil {
				logging.With(ctx, b.log).Warn().Err(err).Str("file", f.Name).Msg("failed to delete file")
				continue
			}
			deleted++
		}
		if err := b.States.Clear(ctx, conv); err != nil {
			return err
		}
		b.reply(ctx, conv, b.Translator.T("files_deleted", deleted, len(st.Files)))
		return nil
	case conversation.IsNo(text):
		return b.offerFiles(ctx, conv, st.Files)
	default:
		b.reply(ctx, conv, b.Translator.T("retry_"+string(model.StateDeleteConfirmation)))
		return nil
	}
}

func totalSize(files []model.StoredFile) int64 {
	var n int64
	for _, f := range files {
		n += f.Size
	}
	return n
}

func (b *BotFacade) handleCookieCommand(ctx context.Context, in Inbound, _ string) error {
	if b.Cookies == nil {
		return fmt.Errorf("credential store: %w", domain.ErrNotFound)
	}
	if err := b.States.Set(ctx, in.ConversationID, model.CookieText{}); err != nil {
		return err
	}
	b.reply(ctx, in.ConversationID, b.Translator.T("prompt_cookie_text"))
	return nil
}

func (b *BotFacade) onCookieText(ctx context.Context, conv int64, _ model.StateEntry, text string) error {
	if strings.EqualFold(strings.TrimSpace(text), "cancel") {
		if err := b.States.Clear(ctx, conv); err != nil {
			return err
		}
		b.reply(ctx, conv, b.Translator.T("cancelled"))
		return nil
	}
	if !looksLikeCookieFile(text) {
		return fmt.Errorf("cookie text: %w", domain.ErrInvalidCredential)
	}
	if err := b.Cookies.SaveCookies(ctx, text); err != nil {
		return fmt.Errorf("save cookies: %w", err)
	}
	if err := b.States.Clear(ctx, conv); err != nil {
		return err
	}
	b.reply(ctx, conv, b.Translator.T("cookie_saved"))
	return nil
}

// looksLikeCookieFile accepts Netscape cookie jars: the usual header or at
// least one tab separated line with seven fields.
func looksLikeCookieFile(text string) bool {
	if strings.Contains(text, "# Netscape HTTP Cookie File") || strings.Contains(text, "# HTTP Cookie File") {
		return true
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if len(strings.Split(line, "\t")) == 7 {
			return true
		}
	}
	return false
}
