package bot

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

const welcomeText = `🎬 Subtitle Embedder Bot

Welcome! I can embed subtitles into your video files.

How to use:
1. Send me a video file
2. Send subtitle file(s) - you can send multiple
3. Select language for each subtitle
4. Send /done when you've sent all subtitles
5. I'll process and send back your video with embedded subtitles

Supported formats:
📹 Video: MP4, MKV, AVI, MOV, FLV, WMV, WEBM, M4V
📝 Subtitles: SRT, ASS, SSA, VTT, SUB

Commands:
/start - Start the bot
/help - Show help message
/cancel - Cancel current operation
/done - Process the collected files

Customization:
/set_caption - Set custom caption
/see_caption - View your caption
/del_caption - Delete custom caption
/view_thumb - View your thumbnail
/del_thumb - Delete your thumbnail
Send a photo to set it as your thumbnail.`

const (
	msgSendVideoFirst      = "⚠️ Please send a video file first!"
	msgNeedSubtitle        = "⚠️ Please send at least one subtitle file!"
	msgUnsupportedFile     = "⚠️ Unsupported file format.\nSupported subtitle formats: SRT, ASS, SSA, VTT, SUB"
	msgUnsupportedVideo    = "⚠️ Unsupported video format.\nSupported video formats: MP4, MKV, AVI, MOV, FLV, WMV, WEBM, M4V"
	msgInvalidSelection    = "❌ Invalid selection."
	msgCancelled           = "❌ Operation cancelled. Send a new video to start again."
	msgSessionExpired      = "❌ Session expired. Please start again."
	msgLanguageAlreadySet  = "ℹ️ Language for this subtitle is already set."
	msgBusy                = "⏳ Your video is still being processed. Please wait."
	msgDownloadingVideo    = "📥 Downloading video..."
	msgProcessing          = "⏳ Processing your video... This may take a few minutes."
	msgUploading           = "📤 Uploading processed video..."
	msgDone                = "✅ Done! Send another video to process more files."
	msgVideoDownloadFailed = "❌ Error downloading video. Please send it again."
	msgSubDownloadFailed   = "❌ Error downloading subtitle. The session was reset; please send the video again."
	msgProcessFailed       = "❌ Error processing video. Please try again."
	msgProcessTimedOut     = "❌ Processing took too long and was stopped. Try a smaller file."
	msgPrepareFailed       = "❌ Could not prepare your files. Please send the video again."
	msgDeliverFailed       = "❌ Error uploading the processed video. Please try again."
	msgCaptionUsage        = "Set Custom Caption\n\nUsage: /set_caption Your caption here\n\nAvailable variables:\n{file_name} - File name\n{file_size} - File size\n\nExample:\n/set_caption {file_name}\n{file_size}\n@mychannel"
	msgNoCaption           = "❌ No caption set\n\nUse /set_caption to set a custom caption."
	msgCaptionDeleted      = "✅ Caption deleted successfully!"
	msgNoThumb             = "❌ No thumbnail set\n\nSend me a photo to set as your custom thumbnail."
	msgThumbSaved          = "✅ Thumbnail saved successfully!\n\nThis thumbnail will be used for all your processed videos.\n\nUse /view_thumb to see it or /del_thumb to delete it."
	msgThumbCaption        = "Your current thumbnail\n\nSend a new photo to update it."
	msgThumbDeleted        = "✅ Thumbnail deleted successfully!"
	msgThumbFailed         = "❌ Error saving thumbnail. Please try again."
	msgBanUsage            = "Ban User\n\nUsage: /ban user_id [reason]\n\nExample: /ban 123456789 Spamming"
	msgUnbanUsage          = "Unban User\n\nUsage: /unban user_id\n\nExample: /unban 123456789"
	msgInvalidUserID       = "❌ Invalid user ID. Please provide a valid numeric ID."
	msgBroadcastUsage      = "Broadcast Message\n\nReply to a message with /broadcast to send it to all users."
	msgBroadcasting        = "📢 Broadcasting message..."
	msgUnbannedNotice      = "✅ You have been unbanned!\n\nYou can now use the bot again."
	msgStoreFailed         = "❌ Something went wrong. Please try again later."
	defaultBanReason       = "No reason provided"
)

func bannedText(reason string) string {
	if strings.TrimSpace(reason) == "" {
		reason = defaultBanReason
	}
	return fmt.Sprintf("🚫 You are banned from using this bot\n\nReason: %s\n\nContact the bot admin if you think this is a mistake.", reason)
}

func bannedNotice(reason string) string {
	return fmt.Sprintf("🚫 You have been banned from using this bot\n\nReason: %s\n\nContact the bot admin if you think this is a mistake.", reason)
}

func videoReceivedText(name string, size int64, duration int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✅ Video received!\n\n📄 Name: %s\n📦 Size: %s\n", name, formatMB(size))
	if duration > 0 {
		fmt.Fprintf(&b, "⏱ Duration: %s\n", formatDuration(duration))
	}
	b.WriteString("\nNow send your subtitle file(s).\nYou can send multiple subtitle files for different languages.\nWhen done, send /done to process.")
	return b.String()
}

func downloadingSubtitleText(n int) string {
	return fmt.Sprintf("📥 Downloading subtitle %d...", n)
}

func subtitleReceivedText(n int, name string, size int64) string {
	return fmt.Sprintf("✅ Subtitle %d received!\n\n📄 Name: %s\n📦 Size: %.2f KB\n\n🌍 Please select the language for this subtitle:",
		n, name, float64(size)/1024)
}

func languageSetText(index int, label string) string {
	return fmt.Sprintf("✅ Subtitle %d language set to: %s\n\nSend more subtitles or /done to process.", index+1, label)
}

func tooLargeText(kind string, size, limit int64) string {
	return fmt.Sprintf("⚠️ This %s is too large (%s). The limit is %s.", kind, humanize.IBytes(uint64(size)), humanize.IBytes(uint64(limit)))
}

func captionSavedText(caption string) string {
	return fmt.Sprintf("✅ Caption saved successfully!\n\nYour caption:\n%s\n\nThis will be used for all your processed videos.", caption)
}

func currentCaptionText(caption string) string {
	return "Your current caption:\n\n" + caption
}

func usersText(total, banned int) string {
	return fmt.Sprintf("👥 Total Users: %d\n🚫 Banned: %d", total, banned)
}

func banDoneText(id int64, reason string) string {
	return fmt.Sprintf("✅ User banned successfully!\n\nUser ID: %d\nReason: %s", id, reason)
}

func unbanDoneText(id int64, wasBanned bool) string {
	if !wasBanned {
		return fmt.Sprintf("ℹ️ User %d was not banned.", id)
	}
	return fmt.Sprintf("✅ User unbanned successfully!\n\nUser ID: %d", id)
}

func broadcastDoneText(total, ok, failed int) string {
	return fmt.Sprintf("✅ Broadcast completed!\n\nTotal users: %d\nSuccessful: %d\nFailed: %d", total, ok, failed)
}

func newUserLogText(s Sender) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#NewUser\n\nUser ID: %d\nName: %s", s.UserID, s.DisplayName())
	if s.Username != "" {
		fmt.Fprintf(&b, "\nUsername: @%s", s.Username)
	}
	return b.String()
}

func formatMB(size int64) string {
	return fmt.Sprintf("%.2f MB", float64(size)/(1024*1024))
}

func formatDuration(seconds int) string {
	h, m, s := seconds/3600, (seconds%3600)/60, seconds%60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}
