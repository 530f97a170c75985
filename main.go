package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Encore/commands"
	"Encore/config"
	"Encore/discord"
	"Encore/handlers"
	"Encore/history"
	"Encore/model"
	"Encore/music"
	"Encore/orchestrator"
	"Encore/redis_client"
	"Encore/speaker"
	"Encore/yt"

	"github.com/Strum355/log"
	"github.com/bwmarrin/discordgo"
	"github.com/spf13/viper"
)

const cacheCleanInterval = time.Hour

var production *bool

func main() {
	// Sets Flag to Debug Mode
	production = flag.Bool("p", false, "enables production with json logging")
	flag.Parse()
	if *production {
		log.InitJSONLogger(&log.Config{Output: os.Stdout})
	} else {
		log.InitSimpleLogger(&log.Config{Output: os.Stdout})
	}

	// Sets up Configurations for Viper
	config.InitConfig()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Creates Discord Bot Session
	s, err := discordgo.New("Bot " + viper.GetString("discord.token"))
	if err != nil {
		log.WithError(err).Error("Failed to create Discord session")
		return
	}

	s.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		log.WithFields(log.Fields{"guilds": len(r.Guilds)}).Info("Bot has registered handlers")
	})

	// Configuring Intents and Adding Handlers
	handlers.HandlerConfig(s)

	// Connecting to Discord Server Gateway
	if err := s.Open(); err != nil {
		log.WithError(err).Error("Failed to connect to Discord")
		return
	}
	log.Info("Bot is initialising")

	speakers, err := openSpeakers(s)
	if err != nil {
		log.WithError(err).Error("Failed to connect speakers")
		closeSessions(s, speakers)
		return
	}

	connectors := make([]speaker.Connector, 0, len(speakers))
	speakerIDs := make([]string, 0, len(speakers))
	for _, sp := range speakers {
		c := discord.NewConnector(sp)
		connectors = append(connectors, c)
		speakerIDs = append(speakerIDs, c.ID())
	}

	rdb := redis_client.New(ctx)
	ytManager := yt.NewYouTubeManager(rdb)

	brain := speaker.NewBrain(music.NewStreamer(ytManager), connectors...)
	messenger := discord.NewMessenger(s)

	var recorder orchestrator.Recorder
	var playLog *history.Log
	if dsn := viper.GetString("postgres.dsn"); dsn != "" {
		if playLog, err = history.Open(ctx, dsn); err != nil {
			log.WithError(err).Error("Unable to connect to database, play history is disabled")
		} else {
			recorder = playLog
		}
	}

	orch := orchestrator.New(
		model.NewApp(model.ThresholdByName(viper.GetString("vote.policy"))),
		brain,
		discord.NewMembers(s.State, speakerIDs...),
		ytManager,
		messenger,
		recorder,
	)

	// Register Slash Commands
	if err := commands.NewCommands(orch, messenger).Register(s); err != nil {
		closeSessions(s, speakers)
		return
	}

	go cleanCache(ctx, ytManager)

	log.WithFields(log.Fields{"speakers": len(speakers)}).Info("Bot is ready")
	<-ctx.Done()
	gracefulShutdown(s, speakers, brain, playLog)
}

// openSpeakers connects the speaker bots. Without speaker tokens the command
// bot is the only speaker.
func openSpeakers(s *discordgo.Session) ([]*discordgo.Session, error) {
	tokens := config.SpeakerTokens()
	if len(tokens) == 0 {
		return []*discordgo.Session{s}, nil
	}

	speakers := make([]*discordgo.Session, 0, len(tokens))
	for _, token := range tokens {
		sp, err := discordgo.New("Bot " + token)
		if err != nil {
			return speakers, err
		}
		handlers.SpeakerConfig(sp)
		if err := sp.Open(); err != nil {
			return speakers, err
		}
		speakers = append(speakers, sp)
	}
	return speakers, nil
}

// cleanCache removes unused audio files until ctx is done
func cleanCache(ctx context.Context, ym *yt.YouTubeManager) {
	ticker := time.NewTicker(cacheCleanInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			log.Info("Beginning cache cleanup!")
			ym.CleanCache(ctx)
		}
	}
}

// gracefulShutdown stops playback and closes every session
func gracefulShutdown(s *discordgo.Session, speakers []*discordgo.Session, brain *speaker.Brain, playLog *history.Log) {
	log.Info("Starting graceful shutdown...")

	brain.Shutdown()
	closeSessions(s, speakers)

	if playLog != nil {
		if err := playLog.Close(); err != nil {
			log.WithError(err).Error("Failed to close database")
		}
	}

	log.Info("Cleanly exiting")
}

func closeSessions(s *discordgo.Session, speakers []*discordgo.Session) {
	for _, sp := range speakers {
		if sp != s {
			sp.Close()
		}
	}
	s.Close()
}
