// Command smoke-api runs a signup → login → todo round-trip against a
// live instance and fails loudly when any step misbehaves.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

func main() {
	base := os.Getenv("PEKA_API_URL")
	if base == "" {
		base = "http://localhost:8080"
	}
	base = strings.TrimRight(base, "/")

	client := &http.Client{Timeout: 5 * time.Second}
	email := fmt.Sprintf("smoke-%d@example.com", rand.New(rand.NewSource(time.Now().UnixNano())).Int())
	password := "smoke-test-password"

	// signup
	signup := map[string]string{"email": email, "name": "Smoke Test", "password": password}
	body, _ := json.Marshal(signup)
	resp, err := client.Post(base+"/v1/auth/signup", "application/json", bytes.NewReader(body))
	if err != nil {
		log.Fatalf("signup: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		log.Fatalf("signup status: %d", resp.StatusCode)
	}

	// login
	form := url.Values{
		"username": {email},
		"password": {password},
		"scope":    {"me items"},
	}
	resp, err = client.Post(base+"/v1/auth/token", "application/x-www-form-urlencoded",
		strings.NewReader(form.Encode()))
	if err != nil {
		log.Fatalf("login: %v", err)
	}
	var token struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		log.Fatalf("decode token: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || token.TokenType != "bearer" || token.AccessToken == "" {
		log.Fatalf("login status: %d token_type: %q", resp.StatusCode, token.TokenType)
	}

	authed := func(method, path string, body []byte) *http.Response {
		req, err := http.NewRequest(method, base+path, bytes.NewReader(body))
		if err != nil {
			log.Fatalf("build %s %s: %v", method, path, err)
		}
		req.Header.Set("Authorization", "Bearer "+token.AccessToken)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		resp, err := client.Do(req)
		if err != nil {
			log.Fatalf("%s %s: %v", method, path, err)
		}
		return resp
	}

	// create a todo
	body, _ = json.Marshal(map[string]string{"title": "smoke todo", "priority": "low"})
	resp = authed(http.MethodPost, "/v1/todos", body)
	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		log.Fatalf("decode todo: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated || created.ID == "" {
		log.Fatalf("create todo status: %d id: %q", resp.StatusCode, created.ID)
	}

	// complete it
	resp = authed(http.MethodPost, "/v1/todos/"+created.ID+"/complete", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Fatalf("complete todo status: %d", resp.StatusCode)
	}

	// list completed
	resp = authed(http.MethodGet, "/v1/todos?completed=true", nil)
	var list struct {
		Items []struct {
			ID        string `json:"id"`
			Completed bool   `json:"completed"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		log.Fatalf("decode list: %v", err)
	}
	resp.Body.Close()
	found := false
	for _, item := range list.Items {
		if item.ID == created.ID && item.Completed {
			found = true
		}
	}
	if !found {
		log.Fatalf("completed todo %s missing from list", created.ID)
	}

	fmt.Printf("✅ api smoke test passed: user=%s todo=%s\n", email, created.ID)
}
