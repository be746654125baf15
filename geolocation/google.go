// Copyright 2025 The AfyaMap Authors
// SPDX-License-Identifier: Apache-2.0

package geolocation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"

	apikeys "cloud.google.com/go/apikeys/apiv2"
	"cloud.google.com/go/apikeys/apiv2/apikeyspb"
	"github.com/jcodagnone/afyamap/spatial"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/iterator"
)

// GoogleGeolocateURL is the endpoint of the Google Geolocation API.
const GoogleGeolocateURL = "https://www.googleapis.com/geolocation/v1/geolocate"

// APIKeyDisplayName is the display name of the key looked up through
// Application Default Credentials.
const APIKeyDisplayName = "AfyaMap Geolocation Key"

// Google locates the machine running the process with the Google Geolocation
// API, from its public address.
type Google struct {
	APIKey   string
	Endpoint string
	Client   *http.Client
}

// NewGoogle creates a Google locator.
func NewGoogle(apiKey string, client *http.Client) *Google {
	if client == nil {
		client = http.DefaultClient
	}

	return &Google{APIKey: apiKey, Endpoint: GoogleGeolocateURL, Client: client}
}

type googleRequest struct {
	ConsiderIP bool `json:"considerIp"`
}

type googleResponse struct {
	Location struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	} `json:"location"`
	Accuracy float64 `json:"accuracy"`
	Error    *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Errors  []struct {
			Reason string `json:"reason"`
		} `json:"errors"`
	} `json:"error"`
}

// CurrentPosition implements Locator.
func (g *Google) CurrentPosition(ctx context.Context, _ Options) (spatial.Point, error) {
	if g.APIKey == "" {
		return spatial.Point{}, &Error{Code: PermissionDenied, Message: "no API key"}
	}

	body, err := json.Marshal(googleRequest{ConsiderIP: true})
	if err != nil {
		return spatial.Point{}, err
	}

	endpoint := g.Endpoint
	if endpoint == "" {
		endpoint = GoogleGeolocateURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return spatial.Point{}, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", g.APIKey)

	resp, err := g.Client.Do(req)
	if err != nil {
		return spatial.Point{}, fmt.Errorf("geolocation request failed: %w", err)
	}
	defer resp.Body.Close()

	var gr googleResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return spatial.Point{}, &Error{
			Code:    PositionUnavailable,
			Message: fmt.Sprintf("decoding response (status %d)", resp.StatusCode),
			Err:     err,
		}
	}

	if resp.StatusCode != http.StatusOK || gr.Error != nil {
		code := PositionUnavailable
		if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusBadRequest {
			code = PermissionDenied
		}

		msg := fmt.Sprintf("google returned status %d", resp.StatusCode)
		if gr.Error != nil {
			msg = gr.Error.Message
			if len(gr.Error.Errors) > 0 {
				msg = gr.Error.Errors[0].Reason + ": " + msg
			}
		}

		return spatial.Point{}, &Error{Code: code, Message: msg}
	}

	return spatial.Point{Lat: gr.Location.Lat, Lng: gr.Location.Lng}, nil
}

// ResolveAPIKey returns GOOGLE_MAPS_API_KEY, falling back to the key named
// APIKeyDisplayName in the Application Default Credentials project.
func ResolveAPIKey(ctx context.Context) (string, error) {
	if key := os.Getenv("GOOGLE_MAPS_API_KEY"); key != "" {
		return key, nil
	}

	log.Println("GOOGLE_MAPS_API_KEY is not set. Attempting to retrieve via ADC...")

	return APIKeyFromADC(ctx, APIKeyDisplayName)
}

// APIKeyFromADC looks up an API key by display name in the project of the
// Application Default Credentials and returns its secret.
func APIKeyFromADC(ctx context.Context, displayName string) (string, error) {
	creds, err := google.FindDefaultCredentials(ctx, "https://www.googleapis.com/auth/cloud-platform")
	if err != nil {
		return "", fmt.Errorf("finding default credentials: %w", err)
	}

	projectID := creds.ProjectID
	if projectID == "" {
		projectID = os.Getenv("GOOGLE_CLOUD_PROJECT")
	}

	if projectID == "" {
		return "", errors.New("no project in default credentials and GOOGLE_CLOUD_PROJECT is not set")
	}

	client, err := apikeys.NewClient(ctx)
	if err != nil {
		return "", fmt.Errorf("creating apikeys client: %w", err)
	}
	defer client.Close()

	it := client.ListKeys(ctx, &apikeyspb.ListKeysRequest{
		Parent: fmt.Sprintf("projects/%s/locations/global", projectID),
	})

	for {
		key, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}

		if err != nil {
			return "", fmt.Errorf("listing keys: %w", err)
		}

		if key.DisplayName != displayName {
			continue
		}

		// ListKeys redacts the secret
		resp, err := client.GetKeyString(ctx, &apikeyspb.GetKeyStringRequest{Name: key.Name})
		if err != nil {
			return "", fmt.Errorf("getting key string: %w", err)
		}

		if resp.KeyString == "" {
			return "", fmt.Errorf("key '%s' found but its secret is empty", displayName)
		}

		return resp.KeyString, nil
	}

	return "", fmt.Errorf("key with display name '%s' not found in project %s", displayName, projectID)
}
