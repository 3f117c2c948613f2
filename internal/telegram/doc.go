// Package telegram adapts the Telegram Bot API to the bot package's ports.
//
// Client long-polls for updates, converts each one into a bot.Event with
// ToEvent, and hands it to the dispatcher. It also implements bot.Messenger
// and bot.Fetcher, streaming uploads and downloads with byte progress. Files
// served by a local Bot API server (absolute file paths) are copied from disk
// instead of downloaded.
package telegram
