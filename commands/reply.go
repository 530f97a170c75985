package commands

import (
	"context"
	"sync"
	"time"

	"github.com/Strum355/log"
	"github.com/bwmarrin/discordgo"
)

// deferAfter is how long a command may run before the interaction is
// acknowledged with a "thinking" state.
const deferAfter = 50 * time.Millisecond

// InteractionAPI is the part of *discordgo.Session used to answer interactions.
type InteractionAPI interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponse(interaction *discordgo.Interaction, options ...discordgo.RequestOption) (*discordgo.Message, error)
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// interactionReply answers one interaction. The first embed becomes the
// response, later ones are followups.
type interactionReply struct {
	ctx   context.Context
	api   InteractionAPI
	i     *discordgo.Interaction
	timer *time.Timer

	mu       sync.Mutex
	answered bool // the interaction got a response or a deferred ack
	deferred bool
	sent     int
}

func newInteractionReply(ctx context.Context, api InteractionAPI, i *discordgo.Interaction, after time.Duration) *interactionReply {
	r := &interactionReply{ctx: ctx, api: api, i: i}
	r.timer = time.AfterFunc(after, r.deferResponse)
	return r
}

func (r *interactionReply) deferResponse() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.answered {
		return
	}
	r.answered = true
	r.deferred = true

	err := r.api.InteractionRespond(r.i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
	if err != nil {
		log.WithFields(contextFields(r.ctx, log.Fields{"error": err})).Error("Failed to defer interaction response")
	}
}

// Send implements discord.Sender.
func (r *interactionReply) Send(embed *discordgo.MessageEmbed) (*discordgo.Message, error) {
	r.timer.Stop()
	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		msg *discordgo.Message
		err error
	)
	switch {
	case r.sent > 0:
		msg, err = r.api.FollowupMessageCreate(r.i, true, &discordgo.WebhookParams{
			Embeds: []*discordgo.MessageEmbed{embed},
		})
	case r.deferred:
		msg, err = r.api.InteractionResponseEdit(r.i, &discordgo.WebhookEdit{
			Embeds: &[]*discordgo.MessageEmbed{embed},
		})
	default:
		r.answered = true
		err = r.api.InteractionRespond(r.i, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Embeds: []*discordgo.MessageEmbed{embed},
			},
		})
		if err == nil {
			msg, err = r.api.InteractionResponse(r.i)
		}
	}
	if err != nil {
		return nil, err
	}
	r.sent++
	return msg, nil
}

// Whisper answers with plain text. The text is only visible to the invoking
// user unless the response was already deferred.
func (r *interactionReply) Whisper(content string) error {
	r.timer.Stop()
	r.mu.Lock()
	defer r.mu.Unlock()

	var err error
	switch {
	case r.sent > 0:
		_, err = r.api.FollowupMessageCreate(r.i, false, &discordgo.WebhookParams{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		})
	case r.deferred:
		_, err = r.api.InteractionResponseEdit(r.i, &discordgo.WebhookEdit{Content: &content})
	default:
		r.answered = true
		err = r.api.InteractionRespond(r.i, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Flags:   discordgo.MessageFlagsEphemeral,
				Content: content,
			},
		})
	}
	if err == nil {
		r.sent++
	}
	return err
}

// contextFields merges the request fields stored in ctx with extra.
func contextFields(ctx context.Context, extra log.Fields) log.Fields {
	fields := log.Fields{}
	if base, ok := ctx.Value(log.Key).(log.Fields); ok {
		for k, v := range base {
			fields[k] = v
		}
	}
	for k, v := range extra {
		fields[k] = v
	}
	return fields
}
