package handler

import (
	"context"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"casino-bot/internal/service"
)

// ReferralHandler credits inviters when members join through their links.
type ReferralHandler struct {
	grants *service.GrantScheduler
}

// NewReferralHandler creates a new ReferralHandler.
func NewReferralHandler(grants *service.GrantScheduler) *ReferralHandler {
	return &ReferralHandler{grants: grants}
}

// HandleChatMember handles chat_member updates. A join that carries an
// invite link counts as one use of that link.
func (h *ReferralHandler) HandleChatMember(c tele.Context) error {
	upd := c.ChatMember()
	if !IsInviteJoin(upd) {
		return nil
	}

	inviter := upd.InviteLink.Creator
	if upd.NewChatMember.User != nil && upd.NewChatMember.User.ID == inviter.ID {
		return nil
	}

	granted, err := h.grants.RecordInviteJoin(context.Background(), upd.Chat.ID, upd.InviteLink.InviteLink, inviter.ID)
	if err != nil {
		log.Error().Err(err).
			Int64("guild_id", upd.Chat.ID).
			Int64("inviter_id", inviter.ID).
			Msg("Failed to record invite join")
		return nil
	}
	if !granted {
		log.Debug().
			Int64("guild_id", upd.Chat.ID).
			Int64("inviter_id", inviter.ID).
			Msg("Invite use already credited")
	}
	return nil
}

// IsInviteJoin reports whether upd is a new member joining through an
// invite link with a known creator.
func IsInviteJoin(upd *tele.ChatMemberUpdate) bool {
	if upd == nil || upd.Chat == nil || upd.InviteLink == nil || upd.InviteLink.Creator == nil {
		return false
	}
	if upd.OldChatMember == nil || upd.NewChatMember == nil {
		return false
	}
	wasOut := upd.OldChatMember.Role == tele.Left || upd.OldChatMember.Role == tele.Kicked
	isIn := upd.NewChatMember.Role == tele.Member || upd.NewChatMember.Role == tele.Restricted
	return wasOut && isIn
}
