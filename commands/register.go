package commands

import (
	"context"
	"errors"
	"time"

	"Encore/discord"
	"Encore/message"
	"Encore/model"
	"Encore/orchestrator"

	"github.com/Strum355/log"
	"github.com/bwmarrin/discordgo"
	"github.com/spf13/viper"
)

// Router runs a command against a guild.
type Router interface {
	Handle(ctx context.Context, req orchestrator.Request, respond orchestrator.Responder) error
}

// Deliverer sends command outcomes through a reply.
type Deliverer interface {
	Deliver(g *model.Guild, to discord.Sender, msgs []message.Message) error
}

var errRateLimited = errors.New("user is rate limited")

type CommandHandler func(ctx context.Context, r *interactionReply, i *discordgo.InteractionCreate) *interactionError

type Commands struct {
	commands []*discordgo.ApplicationCommand
	handlers map[string]CommandHandler

	router     Router
	out        Deliverer
	deferAfter time.Duration
	limiter    *userLimiter
}

func termOption(description string) []*discordgo.ApplicationCommandOption {
	return []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "term",
			Description: description,
			Required:    true,
		},
	}
}

// NewCommands builds the slash command set. Every command is routed to router
// and its outcome delivered by out.
func NewCommands(router Router, out Deliverer) *Commands {
	c := &Commands{
		router:     router,
		out:        out,
		deferAfter: deferAfter,
		limiter:    newUserLimiter(commandInterval, commandBurst),
	}

	c.Add(
		&discordgo.ApplicationCommand{
			Name:        "play",
			Description: "Queue a song from a Youtube link, playlist or search.",
			Options:     termOption("Youtube link or search term"),
		},
		c.orchestrate(orchestrator.CmdPlay),
	)

	c.Add(
		&discordgo.ApplicationCommand{
			Name:        "replace",
			Description: "Replace your most recently queued song.",
			Options:     termOption("Youtube link or search term"),
		},
		c.orchestrate(orchestrator.CmdReplace),
	)

	c.Add(
		&discordgo.ApplicationCommand{
			Name:        "pause",
			Description: "Pause the current song.",
		},
		c.orchestrate(orchestrator.CmdPause),
	)

	c.Add(
		&discordgo.ApplicationCommand{
			Name:        "resume",
			Description: "Resume the paused song or start the queue.",
		},
		c.orchestrate(orchestrator.CmdResume),
	)

	c.Add(
		&discordgo.ApplicationCommand{
			Name:        "skip",
			Description: "Vote to skip the current song.",
		},
		c.orchestrate(orchestrator.CmdSkip),
	)

	c.Add(
		&discordgo.ApplicationCommand{
			Name:        "stop",
			Description: "Vote to stop playback in your channel.",
		},
		c.orchestrate(orchestrator.CmdStop),
	)

	c.Add(
		&discordgo.ApplicationCommand{
			Name:        "nowplaying",
			Description: "Show the song that’s now playing.",
		},
		c.orchestrate(orchestrator.CmdNowPlaying),
	)

	c.Add(
		&discordgo.ApplicationCommand{
			Name:        "pet",
			Description: "Pet the bot.",
		},
		c.orchestrate(orchestrator.CmdPet),
	)

	return c
}

// Adds command to the slash commands.
func (c *Commands) Add(com *discordgo.ApplicationCommand, handler CommandHandler) {
	c.commands = append(c.commands, com)
	if c.handlers == nil {
		c.handlers = map[string]CommandHandler{}
	}
	c.handlers[com.Name] = handler
}

// Register routes interactions to the commands and registers them with Discord,
// in a single guild when discord.guild.id is set and globally otherwise.
func (c *Commands) Register(s *discordgo.Session) error {
	s.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		if i.Type == discordgo.InteractionApplicationCommand {
			c.callCommandHandler(s, i)
		}
	})

	guildID := viper.GetString("discord.guild.id")
	if _, err := s.ApplicationCommandBulkOverwrite(viper.GetString("discord.app.id"), guildID, c.commands); err != nil {
		log.WithError(err).Error("Failed to create commands")
		return err
	}
	log.WithFields(log.Fields{
		"guild_id": guildID,
		"commands": len(c.commands),
	}).Info("Registered slash commands")
	return nil
}

// Cannot be an interaction through DMs
func checkDirectMessage(i *discordgo.InteractionCreate) (*discordgo.User, *interactionError) {
	if i.GuildID == "" || i.Member == nil || i.Member.User == nil {
		return nil, &interactionError{
			errors.New("command invoked outside of valid guild"),
			"This command is only available in a valid server",
		}
	}
	return i.Member.User, nil
}

// Text or slash command interactions
func (c *Commands) callCommandHandler(api InteractionAPI, i *discordgo.InteractionCreate) {
	ctx := context.Background()
	commandAuthor, iError := checkDirectMessage(i)
	if iError != nil {
		iError.Handle(ctx, newInteractionReply(ctx, api, i.Interaction, c.deferAfter))
		return
	}

	commandName := i.ApplicationCommandData().Name
	ctx = context.WithValue(ctx, log.Key, log.Fields{
		"author_id":        commandAuthor.ID,
		"channel_id":       i.ChannelID,
		"guild_id":         i.GuildID,
		"user":             commandAuthor.Username,
		"interaction_type": "application",
		"command":          commandName,
	})
	reply := newInteractionReply(ctx, api, i.Interaction, c.deferAfter)

	handler, ok := c.handlers[commandName]
	if !ok {
		iError = &interactionError{orchestrator.ErrUnknownCommand, "Unknown command"}
		iError.Handle(ctx, reply)
		return
	}

	if !c.limiter.Allow(commandAuthor.ID) {
		iError = &interactionError{errRateLimited, "You're sending commands too quickly, try again in a moment"}
		iError.Handle(ctx, reply)
		return
	}

	log.WithContext(ctx).Info("Invoking application command")
	if iError = handler(ctx, reply, i); iError != nil {
		iError.Handle(ctx, reply)
	}
}

// orchestrate hands a command over to the router.
func (c *Commands) orchestrate(cmd orchestrator.Command) CommandHandler {
	return func(ctx context.Context, r *interactionReply, i *discordgo.InteractionCreate) *interactionError {
		req := orchestrator.Request{
			Command:          cmd,
			GuildID:          i.GuildID,
			UserID:           i.Member.User.ID,
			MessageChannelID: i.ChannelID,
		}
		for _, opt := range i.ApplicationCommandData().Options {
			if opt.Name == "term" && opt.Type == discordgo.ApplicationCommandOptionString {
				req.Term = opt.StringValue()
			}
		}

		err := c.router.Handle(ctx, req, func(g *model.Guild, msgs []message.Message) error {
			return c.out.Deliver(g, r, msgs)
		})
		if err != nil {
			return &interactionError{err, message.Message{Kind: message.UnknownError}.Render()}
		}
		return nil
	}
}
