// Package notify delivers best-effort push notifications to post authors.
package notify

import (
	"context"
	"errors"
	"strings"

	expo "github.com/oliveroneill/exponent-server-sdk-golang/sdk"

	"postboard/internal/domain"
)

// ErrInvalidPushToken is returned by senders for tokens they cannot deliver to.
var ErrInvalidPushToken = errors.New("not a valid expo push token")

// IsExpoPushToken reports whether token is an ExponentPushToken[...] or
// ExpoPushToken[...] value.
func IsExpoPushToken(token string) bool {
	_, err := pushToken(token)
	return err == nil
}

// pushToken converts token to the SDK type. The SDK only knows the legacy
// ExponentPushToken prefix, so ExpoPushToken[...] is accepted here.
func pushToken(token string) (expo.ExponentPushToken, error) {
	if !strings.HasSuffix(token, "]") {
		return "", ErrInvalidPushToken
	}
	if strings.HasPrefix(token, "ExpoPushToken[") {
		return expo.ExponentPushToken(token), nil
	}
	if !strings.HasPrefix(token, "ExponentPushToken[") {
		return "", ErrInvalidPushToken
	}
	t, err := expo.NewExponentPushToken(token)
	if err != nil {
		return "", ErrInvalidPushToken
	}
	return t, nil
}

// Message is a single Expo push message.
type Message struct {
	To    string
	Title string
	Body  string
	Data  map[string]string
	Sound string
}

// Sender delivers one message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// BuildMessage renders the push text for an interaction.
func BuildMessage(n domain.Notification) Message {
	title := "New comment on your post"
	body := n.ActorUsername + " commented on your post."
	if n.Kind == domain.NotificationLike {
		title = "Someone liked your post"
		body = n.ActorUsername + " liked your post."
	}
	return Message{
		To:    n.PushToken,
		Title: title,
		Body:  body,
		Data: map[string]string{
			"type":          string(n.Kind),
			"postId":        n.PostID,
			"actorUsername": n.ActorUsername,
		},
		Sound: "default",
	}
}
