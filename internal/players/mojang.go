package players

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/astral-smp/astralbot/internal/shared/logging"
)

// Profile is a resolved Minecraft identity.
type Profile struct {
	ID   uuid.UUID
	Name string
}

// Client resolves Minecraft usernames and UUIDs against the Mojang
// profile APIs.
type Client struct {
	http    *http.Client
	nameAPI string
	uuidAPI string
}

func NewClient() *Client {
	return &Client{
		http:    &http.Client{Timeout: 15 * time.Second},
		nameAPI: "https://api.mojang.com/users/profiles/minecraft/",
		uuidAPI: "https://api.minecraftservices.com/minecraft/profile/lookup/",
	}
}

// ByName resolves a username to a profile.
func (c *Client) ByName(name string) (Profile, error) {
	if name == "" {
		return Profile{}, errors.New("username required")
	}
	url := fmt.Sprintf("%s%s?at=%d", c.nameAPI, name, time.Now().Unix())

	var out struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := c.getJSON(url, &out); err != nil {
		return Profile{}, err
	}
	if out.ID == "" {
		return Profile{}, fmt.Errorf("uuid not found for %q", name)
	}
	// Mojang returns the UUID without hyphens.
	id, err := uuid.Parse(out.ID)
	if err != nil {
		return Profile{}, fmt.Errorf("bad uuid %q for %q: %w", out.ID, name, err)
	}
	resolved := out.Name
	if resolved == "" {
		resolved = name
	}
	return Profile{ID: id, Name: resolved}, nil
}

// ByUUID resolves a player UUID to a profile.
func (c *Client) ByUUID(id uuid.UUID) (Profile, error) {
	url := fmt.Sprintf("%s%s?at=%d", c.uuidAPI, id.String(), time.Now().Unix())

	var out struct {
		Name string `json:"name"`
	}
	if err := c.getJSON(url, &out); err != nil {
		return Profile{}, err
	}
	if out.Name == "" {
		return Profile{}, fmt.Errorf("username not found for %s", id)
	}
	return Profile{ID: id, Name: out.Name}, nil
}

func (c *Client) getJSON(url string, out any) error {
	logging.L().Debug("mojang GET", "url", url)

	r, err := c.http.Get(url)
	if err != nil {
		return err
	}
	defer r.Body.Close()

	if r.StatusCode >= 400 {
		b, _ := io.ReadAll(r.Body)
		return fmt.Errorf("GET %s: %s: %s", url, r.Status, strings.TrimSpace(string(b)))
	}
	return json.NewDecoder(r.Body).Decode(out)
}
