package application

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"media-courier-bot/internal/domain"
	"media-courier-bot/internal/domain/model"
	"media-courier-bot/internal/domain/ports/adapter"
)

const maxImages = 50

// parseImageArgs reads "<query> [count]". The count is clamped to [1, 50].
func parseImageArgs(args string, def int) (string, int) {
	fields := strings.Fields(args)
	count := def
	if len(fields) > 1 {
		if n, err := strconv.Atoi(fields[len(fields)-1]); err == nil {
			count = n
			fields = fields[:len(fields)-1]
		}
	}
	if count < 1 {
		count = 1
	}
	if count > maxImages {
		count = maxImages
	}
	return strings.Join(fields, " "), count
}

func (b *BotFacade) handleImageSearchCommand(ctx context.Context, in Inbound, args string) error {
	query, count := parseImageArgs(args, b.opts.ImageDefault)
	if query == "" {
		b.reply(ctx, in.ConversationID, b.Translator.T("usage_img"))
		return nil
	}
	if b.Images == nil {
		return fmt.Errorf("image search: %w", domain.ErrNotFound)
	}
	b.presence(ctx, in.ConversationID, adapter.PresenceUploadPhoto)
	images, err := b.Images.SearchImages(ctx, query, count)
	if err != nil {
		return fmt.Errorf("search images %q: %w", query, err)
	}
	if len(images) == 0 {
		return fmt.Errorf("images for %q: %w", query, domain.ErrNoResults)
	}
	sendCards(ctx, b, in.ConversationID, images, imageCaption, func(img model.Image) []string {
		return append([]string{img.Src}, img.FallbackURLs...)
	})
	return nil
}
