// Curateur
// Copyright (c) 2026 The Curateur Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Curateur.
//
// Curateur is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Curateur is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Curateur.  If not, see <http://www.gnu.org/licenses/>.

// Package screenscraper implements the ScreenScraper.fr metadata provider.
package screenscraper

import (
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/curateur-project/curateur/pkg/config"
	"github.com/curateur-project/curateur/pkg/helpers/syncutil"
	"github.com/curateur-project/curateur/pkg/scraper"
	"github.com/curateur-project/curateur/pkg/shared/httpclient"
)

const (
	// DefaultBaseURL is the production API endpoint.
	DefaultBaseURL = "https://api.screenscraper.fr/api2"

	providerName    = "ScreenScraper.fr"
	providerWebsite = "https://www.screenscraper.fr"

	devID       = "curateur"
	devPassword = "curateur"
	softname    = "Curateur"
)

// Client talks to the ScreenScraper XML API. It normalizes responses at the
// boundary: HTML entities are decoded, ratings are scaled to [0,1], and HTTP
// failures are mapped onto the scraper error taxonomy.
type Client struct {
	http      *httpclient.Client
	baseURL   string
	username  string
	password  string
	languages []string

	mu       syncutil.RWMutex
	lastUser *scraper.UserInfo
}

// NewClient builds a provider client from the instance config. Credentials
// come from the auth store keyed by the provider website.
func NewClient(cfg *config.Instance) *Client {
	apiCfg := cfg.APICfg()
	client := &Client{
		http:      httpclient.NewClientWithTimeout(time.Duration(apiCfg.RequestTimeoutS) * time.Second),
		baseURL:   DefaultBaseURL,
		languages: cfg.Languages(),
	}
	if creds := config.LookupAuth(config.GetAuthCfg(), providerWebsite); creds != nil {
		client.username = creds.Username
		client.password = creds.Password
	}
	return client
}

// Info returns provider metadata.
func (c *Client) Info() scraper.ProviderInfo {
	return scraper.ProviderInfo{
		Name:         providerName,
		Website:      providerWebsite,
		RequiresAuth: true,
	}
}

// LastUserInfo returns the most recent server-reported caps, or nil. The API
// echoes the user block on every response, so this stays fresh during a run.
func (c *Client) LastUserInfo() *scraper.UserInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.lastUser == nil {
		return nil
	}
	info := *c.lastUser
	return &info
}

func (c *Client) baseValues() url.Values {
	vals := url.Values{}
	vals.Set("devid", devID)
	vals.Set("devpassword", devPassword)
	vals.Set("softname", softname)
	vals.Set("output", "xml")
	if c.username != "" {
		vals.Set("ssid", c.username)
		vals.Set("sspassword", c.password)
	}
	return vals
}

// Match looks up a single game record by ROM identity.
func (c *Client) Match(ctx context.Context, query scraper.Query) (*scraper.Record, error) {
	vals := c.baseValues()
	vals.Set("romtype", "rom")
	if query.PlatformCode != "" {
		vals.Set("systemeid", query.PlatformCode)
	}
	if query.FileName != "" {
		vals.Set("romnom", query.FileName)
	}
	if query.FileSize > 0 {
		vals.Set("romtaille", strconv.FormatInt(query.FileSize, 10))
	}
	if query.CRC32 != "" {
		vals.Set("crc", query.CRC32)
	}
	if query.MD5 != "" {
		vals.Set("md5", query.MD5)
	}
	if query.SHA1 != "" {
		vals.Set("sha1", query.SHA1)
	}

	data, err := c.fetch(ctx, "jeuInfos.php", vals)
	if err != nil {
		return nil, err
	}
	if data.Jeu == nil || data.Jeu.ID == "" {
		msg := data.Error
		if msg == "" {
			msg = fmt.Sprintf("no record for %q", query.FileName)
		}
		return nil, scraper.NewProviderError(scraper.KindNotFound, 0, msg)
	}
	return c.convertJeu(data.Jeu), nil
}

// Search returns candidate records for a free-text query, capped at
// maxResults.
func (c *Client) Search(ctx context.Context, platformCode, query string, maxResults int) ([]scraper.Record, error) {
	vals := c.baseValues()
	vals.Set("recherche", query)
	if platformCode != "" {
		vals.Set("systemeid", platformCode)
	}
	if maxResults > 0 {
		vals.Set("max", strconv.Itoa(maxResults))
	}

	data, err := c.fetch(ctx, "jeuRecherche.php", vals)
	if err != nil {
		return nil, err
	}
	if data.Jeux == nil || len(data.Jeux.Jeux) == 0 {
		return nil, nil
	}

	jeux := data.Jeux.Jeux
	if maxResults > 0 && len(jeux) > maxResults {
		jeux = jeux[:maxResults]
	}
	records := make([]scraper.Record, 0, len(jeux))
	for i := range jeux {
		records = append(records, *c.convertJeu(&jeux[i]))
	}
	return records, nil
}

// Authenticate validates credentials against the user info endpoint and
// returns the server-reported caps.
func (c *Client) Authenticate(ctx context.Context) (*scraper.UserInfo, error) {
	if c.username == "" || c.password == "" {
		return nil, scraper.NewProviderError(scraper.KindFatal, 0,
			"missing credentials: set username and password in auth.toml")
	}

	data, err := c.fetch(ctx, "ssuserInfos.php", c.baseValues())
	if err != nil {
		return nil, err
	}
	if data.SSUser == nil {
		msg := data.Error
		if msg == "" {
			msg = "authentication failed: no user info in response"
		}
		return nil, scraper.NewProviderError(scraper.KindFatal, 0, msg)
	}
	if data.SSUser.Niveau < 1 {
		return nil, scraper.NewProviderError(scraper.KindFatal, 0,
			fmt.Sprintf("account %q is not validated (level %d)", data.SSUser.ID, data.SSUser.Niveau))
	}
	return convertUser(data.SSUser), nil
}

func (c *Client) fetch(ctx context.Context, endpoint string, vals url.Values) (*dataXML, error) {
	reqURL := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, vals.Encode())
	log.Debug().Str("url", redactURL(reqURL)).Msg("querying screenscraper")

	resp, err := c.http.Get(ctx, reqURL)
	if err != nil {
		return nil, scraper.NewProviderError(scraper.KindRetryable, 0,
			fmt.Sprintf("request failed: %v", err))
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("error closing response body")
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, scraper.NewProviderError(scraper.KindRetryable, resp.StatusCode,
			fmt.Sprintf("error reading response body: %v", err))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp.StatusCode, resp.Header, string(body))
	}

	var data dataXML
	if err := xml.Unmarshal(body, &data); err != nil {
		return nil, scraper.NewMalformedError(resp.StatusCode,
			fmt.Sprintf("malformed response: %v", err))
	}

	if data.SSUser != nil {
		c.mu.Lock()
		c.lastUser = convertUser(data.SSUser)
		c.mu.Unlock()
	}
	return &data, nil
}

// classifyStatus maps an HTTP failure onto the error taxonomy. The upstream
// API overloads a handful of non-standard codes for quota and account state.
func classifyStatus(code int, header http.Header, body string) error {
	msg := strings.TrimSpace(body)
	if msg == "" {
		msg = http.StatusText(code)
	}

	switch code {
	case http.StatusForbidden:
		return scraper.NewProviderError(scraper.KindFatal, code,
			fmt.Sprintf("invalid developer credentials: %s", msg))
	case http.StatusLocked:
		return scraper.NewProviderError(scraper.KindFatal, code,
			fmt.Sprintf("API closed for this software: %s", msg))
	case http.StatusUpgradeRequired:
		return scraper.NewProviderError(scraper.KindFatal, code,
			fmt.Sprintf("software blacklisted: %s", msg))
	case 430:
		return scraper.NewProviderError(scraper.KindFatal, code,
			fmt.Sprintf("daily scrape quota exhausted: %s", msg))
	case http.StatusUnauthorized:
		return scraper.NewProviderError(scraper.KindRetryable, code,
			fmt.Sprintf("API server saturated: %s", msg))
	case http.StatusTooManyRequests:
		pe := scraper.NewProviderError(scraper.KindRetryable, code,
			fmt.Sprintf("rate limited: %s", msg))
		pe.RetryAfter = parseRetryAfter(header.Get("Retry-After"))
		return pe
	case http.StatusBadRequest, http.StatusNotFound, 431:
		return scraper.NewProviderError(scraper.KindNotFound, code, msg)
	}
	if code >= 500 {
		return scraper.NewProviderError(scraper.KindRetryable, code,
			fmt.Sprintf("server error: %s", msg))
	}
	return scraper.NewProviderError(scraper.KindRetryable, code, msg)
}

func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(value)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

// redactURL strips credential values from a request URL before logging.
func redactURL(reqURL string) string {
	parsed, err := url.Parse(reqURL)
	if err != nil {
		return "<unparseable url>"
	}
	vals := parsed.Query()
	for _, key := range []string{"devpassword", "sspassword"} {
		if vals.Has(key) {
			vals.Set(key, "***")
		}
	}
	parsed.RawQuery = vals.Encode()
	return parsed.String()
}

func (c *Client) convertJeu(jeu *jeuXML) *scraper.Record {
	record := &scraper.Record{
		ID:           jeu.ID,
		Developer:    decode(jeu.Developpeur),
		Publisher:    decode(jeu.Editeur),
		Players:      decode(jeu.Joueurs),
		Names:        make(map[string]string, len(jeu.Noms)),
		Descriptions: make(map[string]string, len(jeu.Synopses)),
		ReleaseDates: make(map[string]string, len(jeu.Dates)),
	}
	if jeu.Rom != nil {
		record.RomSize = jeu.Rom.Size
	}

	for _, nom := range jeu.Noms {
		if name := decode(nom.Text); name != "" {
			record.Names[nom.Region] = name
		}
	}
	record.Name = pickName(jeu.Noms, record.Names)

	for _, syn := range jeu.Synopses {
		if text := decode(syn.Text); text != "" {
			record.Descriptions[syn.Langue] = text
		}
	}
	for _, date := range jeu.Dates {
		if text := strings.TrimSpace(date.Text); text != "" {
			record.ReleaseDates[date.Region] = text
		}
	}

	if note := strings.TrimSpace(jeu.Note); note != "" {
		if raw, err := strconv.ParseFloat(note, 64); err == nil {
			record.Rating = clamp01(raw / 20)
			record.HasRating = true
		}
	}

	record.Genres = parseGenres(jeu.Genres, c.languages)

	for _, media := range jeu.Medias {
		mediaURL := strings.TrimSpace(media.URL)
		if mediaURL == "" {
			continue
		}
		record.Media = append(record.Media, scraper.MediaItem{
			Type:   media.Type,
			Region: media.Region,
			URL:    mediaURL,
			Format: media.Format,
		})
	}
	return record
}

// pickName prefers the us name, then wor, then the first name in response
// order.
func pickName(noms []nomXML, names map[string]string) string {
	for _, region := range []string{"us", "wor"} {
		if name, ok := names[region]; ok {
			return name
		}
	}
	for _, nom := range noms {
		if name := decode(nom.Text); name != "" {
			return name
		}
	}
	return ""
}

// parseGenres keeps primary genres only, deduplicated by genre id, in id
// order. For each genre the preferred language wins, falling back to English
// and then to whatever language the response carries.
func parseGenres(genres []genreXML, languages []string) []string {
	preferred := "en"
	if len(languages) > 0 {
		preferred = languages[0]
	}

	byID := make(map[string]map[string]string)
	for _, genre := range genres {
		if genre.Principale != "1" {
			continue
		}
		text := decode(genre.Text)
		if text == "" {
			continue
		}
		if byID[genre.ID] == nil {
			byID[genre.ID] = make(map[string]string)
		}
		if _, exists := byID[genre.ID][genre.Langue]; !exists {
			byID[genre.ID][genre.Langue] = text
		}
	}

	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	names := make([]string, 0, len(ids))
	for _, id := range ids {
		langs := byID[id]
		if text, ok := langs[preferred]; ok {
			names = append(names, text)
			continue
		}
		if text, ok := langs["en"]; ok {
			names = append(names, text)
			continue
		}
		keys := make([]string, 0, len(langs))
		for lang := range langs {
			keys = append(keys, lang)
		}
		sort.Strings(keys)
		names = append(names, langs[keys[0]])
	}
	return names
}

func convertUser(user *ssuserXML) *scraper.UserInfo {
	return &scraper.UserInfo{
		ID:                user.ID,
		Level:             user.Niveau,
		MaxThreads:        user.MaxThreads,
		RequestsPerMinute: user.MaxRequestsPerMin,
		RequestsToday:     user.RequestsToday,
		MaxRequestsPerDay: user.MaxRequestsPerDay,
		FailedToday:       user.RequestsKoToday,
		MaxFailedPerDay:   user.MaxRequestsKoPerDay,
	}
}

func decode(s string) string {
	return strings.TrimSpace(html.UnescapeString(s))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
