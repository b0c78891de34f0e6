package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/jeremyviracochaf-eng/evaluacionf/internal/client"
	"github.com/jeremyviracochaf-eng/evaluacionf/internal/model"
)

const (
	attractionsPerPage = 5
	maxCallbackData    = 64
)

// moderator answers admin chats: pending reservations with Accept/Reject buttons and a
// paginated attraction list.
type moderator struct {
	bot      *tgbotapi.BotAPI
	api      *client.Client
	session  *client.Session
	email    string
	password string
	allowed  map[int64]bool
	log      *zap.Logger
}

func (m *moderator) login(ctx context.Context) error {
	s, err := m.api.Login(ctx, m.email, m.password)
	if err != nil {
		return err
	}
	if !s.IsAdmin() {
		return errors.New("bot account is not an admin")
	}
	m.session = s
	return nil
}

// call runs fn with the current session and logs in again once if the token was revoked.
func (m *moderator) call(ctx context.Context, fn func(*client.Session) error) error {
	err := fn(m.session)
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Status == 401 {
		if err := m.login(ctx); err != nil {
			return err
		}
		err = fn(m.session)
	}
	return err
}

func (m *moderator) handle(ctx context.Context, update tgbotapi.Update) {
	if cq := update.CallbackQuery; cq != nil {
		if cq.Message == nil || !m.allowed[cq.Message.Chat.ID] {
			m.bot.Request(tgbotapi.NewCallback(cq.ID, "Not allowed."))
			return
		}
		m.bot.Request(tgbotapi.NewCallback(cq.ID, ""))
		m.callback(ctx, cq.Message.Chat.ID, cq.Data)
		return
	}

	msg := update.Message
	if msg == nil || !msg.IsCommand() {
		return
	}
	chatID := msg.Chat.ID
	if !m.allowed[chatID] {
		m.log.Warn("ignored chat", zap.Int64("chat_id", chatID))
		m.send(tgbotapi.NewMessage(chatID, "This bot only serves administrators."))
		return
	}

	switch msg.Command() {
	case "start", "help":
		m.send(tgbotapi.NewMessage(chatID,
			"/pending - reservations waiting for a decision\n/attractions [province] - browse the catalog"))
	case "pending":
		m.pending(ctx, chatID)
	case "attractions":
		m.attractions(ctx, chatID, client.ListQuery{
			Province: strings.TrimSpace(msg.CommandArguments()),
			Page:     1,
			PerPage:  attractionsPerPage,
		})
	default:
		m.send(tgbotapi.NewMessage(chatID, "Unknown command."))
	}
}

func (m *moderator) callback(ctx context.Context, chatID int64, data string) {
	action, err := parseCallback(data)
	if err != nil {
		m.log.Warn("bad callback", zap.String("data", data), zap.Error(err))
		return
	}
	switch action.kind {
	case "ACCEPT", "REJECT":
		status := model.StatusAccepted
		if action.kind == "REJECT" {
			status = model.StatusRejected
		}
		var res *model.Reservation
		err := m.call(ctx, func(s *client.Session) error {
			var err error
			res, err = m.api.SetStatus(ctx, s, action.id, status)
			return err
		})
		var apiErr *client.APIError
		switch {
		case errors.As(err, &apiErr) && apiErr.IsConflict():
			m.send(tgbotapi.NewMessage(chatID, fmt.Sprintf("Reservation #%d cannot be accepted: the slot already has an accepted reservation.", action.id)))
		case err != nil:
			m.log.Error("set status", zap.Int64("reservation_id", action.id), zap.Error(err))
			m.send(tgbotapi.NewMessage(chatID, fmt.Sprintf("Could not update reservation #%d: %v", action.id, err)))
		default:
			m.send(tgbotapi.NewMessage(chatID, fmt.Sprintf("Reservation #%d is now %s.", res.ID, res.Status)))
		}
	case "PAGE":
		m.attractions(ctx, chatID, client.ListQuery{Province: action.province, Page: int(action.id), PerPage: attractionsPerPage})
	}
}

func (m *moderator) pending(ctx context.Context, chatID int64) {
	var list []model.Reservation
	err := m.call(ctx, func(s *client.Session) error {
		var err error
		list, err = m.api.ListReservations(ctx, s)
		return err
	})
	if err != nil {
		m.log.Error("list reservations", zap.Error(err))
		m.send(tgbotapi.NewMessage(chatID, "Could not load reservations."))
		return
	}

	count := 0
	for _, r := range list {
		if r.Status != model.StatusPending {
			continue
		}
		count++
		out := tgbotapi.NewMessage(chatID, formatReservation(r))
		out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✔ Accept", fmt.Sprintf("ACCEPT_%d", r.ID)),
			tgbotapi.NewInlineKeyboardButtonData("✖ Reject", fmt.Sprintf("REJECT_%d", r.ID)),
		))
		m.send(out)
	}
	if count == 0 {
		m.send(tgbotapi.NewMessage(chatID, "No pending reservations."))
	}
}

func (m *moderator) attractions(ctx context.Context, chatID int64, q client.ListQuery) {
	var page model.Page[model.Attraction]
	err := m.call(ctx, func(s *client.Session) error {
		var err error
		page, err = m.api.ListAttractions(ctx, s, q)
		return err
	})
	if err != nil {
		m.log.Error("list attractions", zap.Error(err))
		m.send(tgbotapi.NewMessage(chatID, "Could not load attractions."))
		return
	}
	if page.Total == 0 {
		m.send(tgbotapi.NewMessage(chatID, "No attractions found."))
		return
	}

	text := formatPage(page)
	row, ok := pageButtons(q, page)
	if !ok {
		text += "\n\nProvince name too long to page through; use a shorter filter."
	}
	out := tgbotapi.NewMessage(chatID, text)
	if len(row) > 0 {
		out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(row)
	}
	m.send(out)
}

// pageButtons builds the Prev/Next row. It reports false when a needed button
// cannot be encoded.
func pageButtons(q client.ListQuery, page model.Page[model.Attraction]) ([]tgbotapi.InlineKeyboardButton, bool) {
	var row []tgbotapi.InlineKeyboardButton
	add := func(label string, target client.ListQuery) bool {
		data, ok := pageCallback(target)
		if ok {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, data))
		}
		return ok
	}
	ok := true
	if prev, has := q.Prev(); has {
		ok = add("« Prev", prev) && ok
	}
	if next, has := q.Next(page); has {
		ok = add("Next »", next) && ok
	}
	return row, ok
}

func (m *moderator) send(c tgbotapi.Chattable) {
	if _, err := m.bot.Send(c); err != nil {
		m.log.Warn("telegram send", zap.Error(err))
	}
}

type callbackAction struct {
	kind     string // ACCEPT, REJECT or PAGE
	id       int64  // reservation id or page number
	province string
}

// parseCallback decodes ACCEPT_<id>, REJECT_<id> and PAGE_<n>[_<province>].
func parseCallback(data string) (callbackAction, error) {
	parts := strings.SplitN(data, "_", 3)
	if len(parts) < 2 {
		return callbackAction{}, fmt.Errorf("malformed callback %q", data)
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || id <= 0 {
		return callbackAction{}, fmt.Errorf("malformed callback %q", data)
	}
	a := callbackAction{kind: parts[0], id: id}
	switch a.kind {
	case "ACCEPT", "REJECT":
	case "PAGE":
		if len(parts) == 3 {
			a.province = parts[2]
		}
	default:
		return callbackAction{}, fmt.Errorf("unknown callback %q", data)
	}
	return a, nil
}

// pageCallback encodes q as PAGE_<n>[_<province>]. It reports false when the
// result exceeds the 64 bytes Telegram allows for callback data.
func pageCallback(q client.ListQuery) (string, bool) {
	data := fmt.Sprintf("PAGE_%d", q.Page)
	if q.Province != "" {
		data += "_" + q.Province
	}
	if len(data) > maxCallbackData {
		return "", false
	}
	return data, true
}

func formatReservation(r model.Reservation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Reservation #%d\n", r.ID)
	if r.Attraction != nil {
		fmt.Fprintf(&b, "%s (%s)\n", r.Attraction.Name, r.Attraction.Province)
	} else {
		fmt.Fprintf(&b, "Attraction #%d\n", r.AttractionID)
	}
	fmt.Fprintf(&b, "%s at %s", r.Date, r.Time)
	if r.User != nil {
		fmt.Fprintf(&b, "\nBy %s <%s>", r.User.Name, r.User.Email)
	}
	if r.Comment != nil && *r.Comment != "" {
		fmt.Fprintf(&b, "\n%q", *r.Comment)
	}
	return b.String()
}

func formatPage(p model.Page[model.Attraction]) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Page %d/%d (%d attractions)\n", p.CurrentPage, p.LastPage, p.Total)
	for _, a := range p.Data {
		fmt.Fprintf(&b, "\n#%d %s - %s", a.ID, a.Name, a.Province)
		if a.Price != nil {
			fmt.Fprintf(&b, " ($%.2f)", *a.Price)
		}
	}
	return b.String()
}

func parseChatIDs(raw string) (map[int64]bool, error) {
	out := map[int64]bool{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("chat id %q: %w", part, err)
		}
		out[id] = true
	}
	return out, nil
}
