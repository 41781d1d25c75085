package middleware

import (
	"errors"
	"unicode/utf8"
)

const (
	maxMessageLength = 100000
	maxTitleLength   = 256
	maxNameLength    = 64
	maxEmojiLength   = 32
)

// ValidateMessageText validates the text of a message sent by a client.
func ValidateMessageText(text string) error {
	if len(text) == 0 {
		return errors.New("text cannot be empty")
	}
	if len(text) > maxMessageLength {
		return errors.New("text exceeds maximum length")
	}
	if !utf8.ValidString(text) {
		return errors.New("text must be valid UTF-8")
	}
	return nil
}

// ValidateTitle validates a conversation title. Empty titles are allowed.
func ValidateTitle(title string) error {
	if utf8.RuneCountInString(title) > maxTitleLength {
		return errors.New("title exceeds maximum length")
	}
	if !utf8.ValidString(title) {
		return errors.New("title must be valid UTF-8")
	}
	return nil
}

// ValidateFolderName validates a folder name.
func ValidateFolderName(name string) error {
	if len(name) == 0 {
		return errors.New("folder name cannot be empty")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return errors.New("folder name exceeds maximum length")
	}
	if !utf8.ValidString(name) {
		return errors.New("folder name must be valid UTF-8")
	}
	return nil
}

// ValidateEmoji validates a reaction emoji.
func ValidateEmoji(emoji string) error {
	if len(emoji) == 0 {
		return errors.New("emoji cannot be empty")
	}
	if len(emoji) > maxEmojiLength || !utf8.ValidString(emoji) {
		return errors.New("invalid emoji")
	}
	return nil
}
