package main

import (
	"bytes"
	"fmt"
	"log"

	"blessyou/constants"

	"github.com/spf13/viper"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
)

func SendMail(recepients []string, subject, body string) error {
	from := viper.GetString("smtp.from_email")
	host := viper.GetString("smtp.host")
	port := viper.GetString("smtp.port")
	username := viper.GetString("smtp.username")
	password := viper.GetString("smtp.password")

	if host == "" {
		// No SMTP configured (dev, tests); notifications are silently skipped.
		return nil
	}

	auth := sasl.NewLoginClient(username, password)

	var err error
	for _, recipient := range recepients {
		message := "From: " + from + "\n" +
			"To: " + recipient + "\n" +
			"Subject: " + subject + "\n\n" +
			body

		to := []string{recipient}
		msg := []byte(message)
		reader := bytes.NewReader(msg)
		err = smtp.SendMail(host+":"+port, auth, from, to, reader)
		if err != nil {
			log.Printf("WARN: Failed to send email: %v\n", err)
		}
	}

	return err
}

// notifyWallOwner emails the owning user about a new wish, when the owner
// opted into notifications. Best-effort; runs in its own goroutine.
func notifyWallOwner(wall *WishWall, wish *WallWish) {
	if wall.UserID == nil {
		return
	}
	var owner User
	if err := db.First(&owner, "id = ?", *wall.UserID).Error; err != nil {
		return
	}
	if !owner.EmailNotifications || owner.Email == "" {
		return
	}

	subject := fmt.Sprintf("New wish on %q", wall.Title)
	body := fmt.Sprintf("%s left a wish on your wall:\n\n%s\n\nSee it at %s/wish/%s",
		wish.AuthorName, wish.Content, constants.PUBLIC_URL, wall.Slug)

	go func() {
		if err := SendMail([]string{owner.Email}, subject, body); err != nil {
			log.Printf("WARN: Failed to notify wall owner %s: %v", owner.Email, err)
		}
	}()
}
