package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"poputchik-service/internal/domain/entity"
	"poputchik-service/internal/domain/repository"
	"poputchik-service/pkg/logger"
	"poputchik-service/pkg/retry"
)

// TelegramRepository handles delivery through the Telegram Bot API
type TelegramRepository struct {
	logger    logger.Logger
	baseURL   string
	token     string
	channelID string
	client    *http.Client
}

// NewTelegramRepository creates a new Telegram delivery repository
func NewTelegramRepository(log logger.Logger, baseURL, token, channelID string) repository.TelegramRepository {
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramRepository{
		logger:    log,
		baseURL:   baseURL,
		token:     token,
		channelID: channelID,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	Result      struct {
		MessageID int64 `json:"message_id"`
	} `json:"result"`
}

// call performs one Bot API method call with bounded network retry and
// returns the resulting message id.
func (r *TelegramRepository) call(ctx context.Context, method string, payload map[string]interface{}) (int64, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", r.baseURL, r.token, method)

	var messageID int64
	err = retry.Do(ctx, r.logger, "telegram."+method, func() error {
		req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := r.client.Do(req)
		if err != nil {
			return fmt.Errorf("failed to send request: %w", err)
		}
		defer resp.Body.Close()

		var response apiResponse
		if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		if !response.OK {
			return fmt.Errorf("telegram API returned status %d: %s", resp.StatusCode, response.Description)
		}

		messageID = response.Result.MessageID
		return nil
	})
	if err != nil {
		return 0, err
	}
	return messageID, nil
}

// SendMatchNotification delivers one match notification to a recipient
func (r *TelegramRepository) SendMatchNotification(ctx context.Context, req *entity.DispatchRequest) error {
	text := composeMatchText(req)

	payload := map[string]interface{}{
		"chat_id":    req.RecipientTelegramID,
		"parse_mode": "HTML",
	}

	method := "sendMessage"
	if req.Author.CarPhotoFileID != "" {
		method = "sendPhoto"
		payload["photo"] = req.Author.CarPhotoFileID
		payload["caption"] = text
	} else {
		payload["text"] = text
	}

	messageID, err := r.call(ctx, method, payload)
	if err != nil {
		return err
	}

	r.logger.Info("Match notification delivered",
		"dispatchId", req.ID,
		"recipientTelegramId", req.RecipientTelegramID,
		"messageId", messageID,
		"kind", req.Kind)
	return nil
}

// PublishToChannel posts the offer to the public channel
func (r *TelegramRepository) PublishToChannel(ctx context.Context, post *entity.Post, author *entity.User) (int64, error) {
	if r.channelID == "" {
		return 0, fmt.Errorf("channel id is not configured")
	}

	payload := map[string]interface{}{
		"chat_id":    r.channelID,
		"text":       composeChannelText(post, author),
		"parse_mode": "HTML",
	}

	return r.call(ctx, "sendMessage", payload)
}

// UpdateChannelMessage rewrites a previously published channel message
func (r *TelegramRepository) UpdateChannelMessage(ctx context.Context, messageID int64, text string) error {
	payload := map[string]interface{}{
		"chat_id":    r.channelID,
		"message_id": messageID,
		"text":       text,
		"parse_mode": "HTML",
	}

	_, err := r.call(ctx, "editMessageText", payload)
	return err
}

func composeMatchText(req *entity.DispatchRequest) string {
	var header string
	switch {
	case req.Kind == entity.DispatchKindSubscription:
		header = "🔔 <b>Найдено совпадение по вашей подписке!</b>"
	case req.Post.Role == entity.RoleDriver:
		header = "🔔 <b>Найден водитель!</b>"
	default:
		header = "🔔 <b>Найден пассажир!</b>"
	}

	return header + "\n\n" + composeOfferBlock(
		req.Post.Role,
		req.Post.FromPlace,
		req.Post.ToPlace,
		req.Post.DepartureTime,
		req.Post.Seats,
		req.Post.Price,
		req.Author.Rating,
	)
}

func composeChannelText(post *entity.Post, author *entity.User) string {
	expires := post.ExpiresAt.Local().Format("15:04")
	return composeOfferBlock(
		post.Role,
		post.FromPlace,
		post.ToPlace,
		post.DepartureTime,
		post.Seats,
		post.Price,
		author.Rating,
	) + fmt.Sprintf("\n⏰ <b>Активно до:</b> %s", expires)
}

func composeOfferBlock(role, from, to, departure string, seats *int, price int, rating string) string {
	roleEmoji, roleText := "🚶", "ПАССАЖИР"
	if role == entity.RoleDriver {
		roleEmoji, roleText = "🚗", "ВОДИТЕЛЬ"
	}

	if departure == "" {
		departure = "Не указано"
	}

	seatsLine := ""
	if seats != nil {
		seatsLine = fmt.Sprintf("🪑 <b>Мест:</b> %s\n", strconv.Itoa(*seats))
	}

	return fmt.Sprintf(
		"%s <b>%s</b>\n\n"+
			"📍 <b>Откуда:</b> %s\n"+
			"📍 <b>Куда:</b> %s\n"+
			"⏰ <b>Время:</b> %s\n"+
			"%s"+
			"💰 <b>Цена:</b> %d сом\n"+
			"⭐ <b>Рейтинг:</b> %s",
		roleEmoji, roleText, from, to, departure, seatsLine, price, rating,
	)
}
