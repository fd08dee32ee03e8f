package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"log"
	"net"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

type contextKey string

// currentUserKey carries the signed-in *User through the request context.
// Query functions take the user id as an explicit argument instead of
// reading ambient state; the context is only the handler-side transport.
const currentUserKey contextKey = "current_user"

func generateAuthToken() (string, error) {
	const tokenLength = 32
	tokenBytes := make([]byte, tokenLength)
	_, err := rand.Read(tokenBytes)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(tokenBytes), nil
}

// UserContextMiddleware resolves the session cookie to a user, if any, and
// stashes it in the request context. Pages stay public; nothing redirects
// here.
func UserContextMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("session_token")
		if err == nil && cookie.Value != "" {
			var user User
			result := db.Where("session_token = ?", cookie.Value).First(&user)
			if result.Error == nil {
				ctx := context.WithValue(r.Context(), currentUserKey, &user)
				r = r.WithContext(ctx)
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuth guards account-only routes, bouncing anonymous visitors to the
// sign-in page.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if getSignedInUserOrNil(r) == nil {
			http.Redirect(w, r, "/signin", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func getSignedInUserOrNil(r *http.Request) *User {
	user, _ := r.Context().Value(currentUserKey).(*User)
	return user
}

// signedInUserID returns the current user's id or "" for anonymous visitors.
func signedInUserID(r *http.Request) string {
	if user := getSignedInUserOrNil(r); user != nil {
		return user.ID
	}
	return ""
}

// clientIP extracts the remote address without the port, used as the like
// identity for anonymous visitors.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func recordLoginAttempt(email, ip string, success bool) {
	attempt := LoginAttempt{Email: email, IPAddress: ip, Success: success}
	if err := db.Create(&attempt).Error; err != nil {
		log.Printf("WARN: Failed to record login attempt: %v", err)
	}
}

func setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     "session_token",
		Value:    token,
		Path:     "/",
		HttpOnly: true,
	})
}

func GetSignIn(w http.ResponseWriter, r *http.Request) {
	if getSignedInUserOrNil(r) != nil {
		http.Redirect(w, r, "/profile", http.StatusSeeOther)
		return
	}
	renderPage(w, r, "signin", nil)
}

func PostSignIn(w http.ResponseWriter, r *http.Request) {
	email := strings.ToLower(strings.TrimSpace(r.FormValue("email")))
	password := r.FormValue("password")

	var user User
	result := db.Where("email = ?", email).First(&user)
	if result.Error != nil {
		recordLoginAttempt(email, clientIP(r), false)
		http.Error(w, "Invalid email or password", http.StatusUnauthorized)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		recordLoginAttempt(email, clientIP(r), false)
		http.Error(w, "Invalid email or password", http.StatusUnauthorized)
		return
	}
	recordLoginAttempt(email, clientIP(r), true)

	token, err := generateAuthToken()
	if err != nil {
		http.Error(w, "Error signing in", http.StatusInternalServerError)
		return
	}
	user.SessionToken = token
	db.Save(&user)

	setSessionCookie(w, token)
	http.Redirect(w, r, "/profile", http.StatusSeeOther)
}

func GetSignUp(w http.ResponseWriter, r *http.Request) {
	if getSignedInUserOrNil(r) != nil {
		http.Redirect(w, r, "/profile", http.StatusSeeOther)
		return
	}
	renderPage(w, r, "signup", nil)
}

func PostSignUp(w http.ResponseWriter, r *http.Request) {
	email := strings.ToLower(strings.TrimSpace(r.FormValue("email")))
	fullName := r.FormValue("full_name")
	password := r.FormValue("password")

	if email == "" || password == "" {
		http.Error(w, "Email and password are required", http.StatusBadRequest)
		return
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "Error creating account: "+err.Error(), http.StatusInternalServerError)
		return
	}

	newUser := User{Email: email, FullName: fullName, PasswordHash: passwordHash}
	result := db.Create(&newUser)
	if result.Error != nil {
		http.Error(w, "Error creating account: "+result.Error.Error(), http.StatusInternalServerError)
		return
	}

	token, err := generateAuthToken()
	if err != nil {
		http.Error(w, "Error creating account: "+err.Error(), http.StatusInternalServerError)
		return
	}
	newUser.SessionToken = token
	db.Save(&newUser)

	setSessionCookie(w, token)
	http.Redirect(w, r, "/profile", http.StatusSeeOther)
}

func Logout(w http.ResponseWriter, r *http.Request) {
	if user := getSignedInUserOrNil(r); user != nil {
		user.SessionToken = ""
		db.Save(user)
	}
	http.SetCookie(w, &http.Cookie{
		Name:   "session_token",
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func ProfilePage(w http.ResponseWriter, r *http.Request) {
	user := getSignedInUserOrNil(r)

	walls, err := GetUserWishWalls(user.ID)
	if err != nil {
		http.Error(w, "Error fetching your walls", http.StatusInternalServerError)
		return
	}

	renderPage(w, r, "profile", struct {
		User  *User
		Walls []WishWall
	}{user, walls})
}

func PostProfileSettings(w http.ResponseWriter, r *http.Request) {
	user := getSignedInUserOrNil(r)
	user.FullName = r.FormValue("full_name")
	user.EmailNotifications = r.FormValue("email_notifications") == "on"
	if err := db.Save(user).Error; err != nil {
		http.Error(w, "Error saving profile", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/profile", http.StatusSeeOther)
}
