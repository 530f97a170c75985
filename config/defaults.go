package config

import (
	"os"

	"github.com/spf13/viper"
)

func initDefaults() {
	viper.SetDefault("discord.token", os.Getenv("discord_token"))
	viper.SetDefault("discord.app.id", os.Getenv("discord_app_id"))
	viper.SetDefault("discord.guild.id", "")
	viper.SetDefault("speaker.tokens", "")
	viper.SetDefault("prefix", "^")
	viper.SetDefault("theme", 0x8e44ad)

	viper.SetDefault("redis.address", os.Getenv("redis_address"))
	viper.SetDefault("postgres.dsn", "")

	// Seconds
	viper.SetDefault("cache.youtube", 7*24*60*60)
	viper.SetDefault("cache.audio", 24*60*60)
	viper.SetDefault("cache.dir", "cache")

	viper.SetDefault("play.search_prefix", "ytsearch")
	viper.SetDefault("play.max_playlist", 50)
	viper.SetDefault("play.prefetch", 3)
	viper.SetDefault("vote.policy", "majority")

	initMessages()
}

func initMessages() {
	viper.SetDefault("messages.action.playing", ":notes: Now playing [{song_title}]({song_url}) ({duration}) in <#{voice_channel_id}>, queued by <@{user_id}>")
	viper.SetDefault("messages.action.playing_response", ":notes: Now playing [{song_title}]({song_url}) ({duration}) in <#{voice_channel_id}>")
	viper.SetDefault("messages.action.finished", ":checkered_flag: Finished playing in <#{voice_channel_id}>")
	viper.SetDefault("messages.action.no_speakers_error", ":mute: All speakers are busy, couldn't keep playing in <#{voice_channel_id}>")
	viper.SetDefault("messages.action.unknown_error", ":warning: Something went wrong, please try again")

	viper.SetDefault("messages.response.queued", ":inbox_tray: Queued [{song_title}]({song_url})")
	viper.SetDefault("messages.response.queued_multiple", ":inbox_tray: Queued {count} songs")
	viper.SetDefault("messages.response.queued_no_speakers", ":inbox_tray: Queued [{song_title}]({song_url}), it will play when a speaker is free")
	viper.SetDefault("messages.response.queued_multiple_no_speakers", ":inbox_tray: Queued {count} songs, they will play when a speaker is free")
	viper.SetDefault("messages.response.replaced", ":twisted_rightwards_arrows: Replaced [{old_song_title}]({old_song_url}) with [{new_song_title}]({new_song_url})")
	viper.SetDefault("messages.response.replace_skipped", ":twisted_rightwards_arrows: Skipped [{old_song_title}]({old_song_url}) in <#{voice_channel_id}>, [{new_song_title}]({new_song_url}) is queued")
	viper.SetDefault("messages.response.paused", ":pause_button: <@{user_id}> paused [{song_title}]({song_url}) in <#{voice_channel_id}>")
	viper.SetDefault("messages.response.skipped", ":track_next: <@{user_id}> skipped [{song_title}]({song_url}) in <#{voice_channel_id}>")
	viper.SetDefault("messages.response.skip_more_votes_needed.singular", ":ballot_box: Voted to skip [{song_title}]({song_url}), 1 more vote needed")
	viper.SetDefault("messages.response.skip_more_votes_needed.plural", ":ballot_box: Voted to skip [{song_title}]({song_url}), {count} more votes needed")
	viper.SetDefault("messages.response.stopped", ":stop_button: <@{user_id}> stopped [{song_title}]({song_url}) in <#{voice_channel_id}>")
	viper.SetDefault("messages.response.stop_more_votes_needed.singular", ":ballot_box: Voted to stop in <#{voice_channel_id}>, 1 more vote needed")
	viper.SetDefault("messages.response.stop_more_votes_needed.plural", ":ballot_box: Voted to stop in <#{voice_channel_id}>, {count} more votes needed")
	viper.SetDefault("messages.response.now_playing", ":notes: [{song_title}]({song_url}) ({duration}) is playing in <#{voice_channel_id}>, queued by <@{user_id}>")
	viper.SetDefault("messages.response.no_matching_songs_error", ":mag: No songs matched your search")
	viper.SetDefault("messages.response.not_in_voice_channel_error", ":no_entry: Join a voice channel first")
	viper.SetDefault("messages.response.unsupported_site_error", ":no_entry: Only Youtube links are supported")
	viper.SetDefault("messages.response.skip_already_voted_error", ":ballot_box: You already voted to skip [{song_title}]({song_url})")
	viper.SetDefault("messages.response.stop_already_voted_error", ":ballot_box: You already voted to stop playback in <#{voice_channel_id}>")
	viper.SetDefault("messages.response.nothing_is_queued_error", ":zero: Nothing is queued")
	viper.SetDefault("messages.response.nothing_is_playing_error", ":zzz: Nothing is playing in your channel")
	viper.SetDefault("messages.response.already_playing_error", ":notes: Already playing in your channel")
	viper.SetDefault("messages.response.pet", ":purple_heart: *happy speaker noises*")
	viper.SetDefault("messages.response.shiny_pet", ":sparkles: :purple_heart: *shiny speaker noises* :sparkles:")
}
