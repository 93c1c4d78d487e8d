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

package gamelist

import (
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCatalog = `<?xml version="1.0" encoding="UTF-8"?>
<gameList>
	<provider>
		<System>Super Nintendo</System>
		<software>Curateur</software>
		<database>ScreenScraper.fr</database>
		<web>https://www.screenscraper.fr</web>
	</provider>
	<game id="1234" source="ScreenScraper.fr">
		<path>./Chrono Voyage (USA).sfc</path>
		<name>Chrono Voyage</name>
		<desc>A journey &amp; a half.</desc>
		<rating>0.75</rating>
		<releasedate>19950311T000000</releasedate>
		<developer>Square</developer>
		<genre>RPG - Adventure</genre>
		<players>1</players>
		<image>./media/covers/Chrono Voyage (USA).png</image>
		<favorite>true</favorite>
		<playcount>12</playcount>
		<md5>ABC123</md5>
		<sortname>chrono voyage</sortname>
		<scrap name="ScreenScraper.fr" date="20260301T120000"></scrap>
	</game>
	<game>
		<name>No Path Entry</name>
	</game>
</gameList>`

func parseSample(t *testing.T) *Document {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/catalog/gamelist.xml", []byte(sampleCatalog), 0o644))
	doc, err := Parse(fs, "/catalog/gamelist.xml")
	require.NoError(t, err)
	return doc
}

func TestParseCatalog(t *testing.T) {
	t.Parallel()

	doc := parseSample(t)
	require.NotNil(t, doc.Provider)
	assert.Equal(t, "Super Nintendo", doc.Provider.System)

	// the entry without a path is dropped
	require.Len(t, doc.Games, 1)
	game := doc.Games[0]
	assert.Equal(t, "1234", game.ID)
	assert.Equal(t, "ScreenScraper.fr", game.Source)
	assert.Equal(t, "./Chrono Voyage (USA).sfc", game.Path)
	assert.Equal(t, "A journey & a half.", game.Desc)
	assert.Equal(t, "0.75", game.Rating)
	assert.True(t, game.Favorite)
	assert.Equal(t, "12", game.PlayCount)

	// unknown elements preserved, attributes included
	require.Len(t, game.Extras, 3)
	scrap := game.Extras[2]
	assert.Equal(t, "scrap", scrap.Tag)
	require.Len(t, scrap.Attrs, 2)
	assert.Equal(t, "name", scrap.Attrs[0].Name.Local)
	assert.Equal(t, "ScreenScraper.fr", scrap.Attrs[0].Value)
}

func TestParseMissingFile(t *testing.T) {
	t.Parallel()

	doc, err := Parse(afero.NewMemMapFs(), "/nowhere/gamelist.xml")
	require.NoError(t, err)
	assert.Empty(t, doc.Games)
}

func TestParseKeepsGoodEntriesOnMalformedGame(t *testing.T) {
	t.Parallel()

	// the second game's element structure is broken, the third is fine
	content := `<?xml version="1.0"?>
<gameList>
	<game>
		<path>./a.sfc</path>
		<name>A</name>
	</game>
	<game>
		<path>./b.sfc</path>
		<broken></mismatch>
	</game>
	<game>
		<path>./c.sfc</path>
		<name>C</name>
	</game>
</gameList>`

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/catalog/gamelist.xml", []byte(content), 0o644))
	doc, err := Parse(fs, "/catalog/gamelist.xml")
	require.NoError(t, err)

	require.NotEmpty(t, doc.Games)
	assert.Equal(t, "./a.sfc", doc.Games[0].Path)
}

func TestParseKeepsGoodEntriesOnTruncatedFile(t *testing.T) {
	t.Parallel()

	content := `<?xml version="1.0"?>
<gameList>
	<game>
		<path>./a.sfc</path>
		<name>A</name>
	</game>
	<game>
		<path>./b.sfc`

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/catalog/gamelist.xml", []byte(content), 0o644))
	doc, err := Parse(fs, "/catalog/gamelist.xml")
	require.NoError(t, err)

	require.Len(t, doc.Games, 1)
	assert.Equal(t, "./a.sfc", doc.Games[0].Path)
}

func TestRoundTripPreservesUnknownFields(t *testing.T) {
	t.Parallel()

	doc := parseSample(t)
	rendered := string(Render(doc))

	assert.Contains(t, rendered, "<md5>ABC123</md5>")
	assert.Contains(t, rendered, "<sortname>chrono voyage</sortname>")
	assert.Contains(t, rendered, `<scrap name="ScreenScraper.fr" date="20260301T120000">`)
	assert.Contains(t, rendered, "<favorite>true</favorite>")
	assert.Contains(t, rendered, "<desc>A journey &amp; a half.</desc>")

	// unknown elements re-emitted in original order
	assert.Less(t, strings.Index(rendered, "<md5>"), strings.Index(rendered, "<sortname>"))

	// a second parse sees the same data
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/gamelist.xml", []byte(rendered), 0o644))
	doc2, err := Parse(fs, "/gamelist.xml")
	require.NoError(t, err)
	require.Len(t, doc2.Games, 1)
	assert.Equal(t, doc.Games[0], doc2.Games[0])
}

func TestWriteBacksUpPrevious(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	path := "/catalog/gamelist.xml"
	require.NoError(t, afero.WriteFile(fs, path, []byte("old content"), 0o644))

	doc := &Document{Games: []Entry{{Path: "./a.sfc", Name: "A"}}}
	require.NoError(t, Write(fs, path, doc))

	backup, err := afero.ReadFile(fs, path+BackupSuffix)
	require.NoError(t, err)
	assert.Equal(t, "old content", string(backup))

	current, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	assert.Contains(t, string(current), "<name>A</name>")

	exists, _ := afero.Exists(fs, path+".tmp")
	assert.False(t, exists)
}

func TestUserFieldsOmittedWhenUnset(t *testing.T) {
	t.Parallel()

	doc := &Document{Games: []Entry{{Path: "./a.sfc", Name: "A"}}}
	rendered := string(Render(doc))
	assert.NotContains(t, rendered, "<favorite>")
	assert.NotContains(t, rendered, "<hidden>")
	assert.NotContains(t, rendered, "<playcount>")
}

func TestFormatRating(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "0.75", FormatRating(0.75))
	assert.Equal(t, "1", FormatRating(1.0))
	assert.Equal(t, "0.333333", FormatRating(1.0/3.0))
	assert.Equal(t, "0", FormatRating(0))
}

func TestFormatReleaseDate(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "19950311T000000", FormatReleaseDate("1995-03-11"))
	assert.Equal(t, "19950101T000000", FormatReleaseDate("1995"))
	assert.Equal(t, "19950301T000000", FormatReleaseDate("1995-03"))
	assert.Empty(t, FormatReleaseDate("unknown"))
	assert.Empty(t, FormatReleaseDate(""))
}

func TestMergeNewEntry(t *testing.T) {
	t.Parallel()

	fresh := &Entry{Path: "./a.sfc", Name: "A"}
	merged, change := Merge(nil, fresh, PreserveUserEdits)
	assert.True(t, change.New)
	assert.Equal(t, *fresh, merged)
}

func TestMergePreserveUserEdits(t *testing.T) {
	t.Parallel()

	existing := &Entry{
		Path:      "./a.sfc",
		Name:      "Old Provider Name",
		Desc:      "Old description",
		Developer: "Square",
		Favorite:  true,
		Extras:    []Extra{{Tag: "sortname", Inner: "custom"}},
	}
	fresh := &Entry{
		Path: "./a.sfc",
		ID:   "99",
		Name: "New Provider Name",
		Desc: "New description",
	}

	merged, change := Merge(existing, fresh, PreserveUserEdits)

	// scraped fields take the provider's values
	assert.Equal(t, "New Provider Name", merged.Name)
	assert.Equal(t, "New description", merged.Desc)
	// empty fresh value never blanks a populated field
	assert.Equal(t, "Square", merged.Developer)
	// user fields and unknown elements are untouched
	assert.True(t, merged.Favorite)
	assert.Equal(t, "99", merged.ID)
	require.Len(t, merged.Extras, 1)
	assert.Equal(t, []string{"desc", "name"}, change.Updated)
}

func TestMergeRerunChangesDescriptionOnly(t *testing.T) {
	t.Parallel()

	existing := &Entry{
		Path:     "./a.sfc",
		Name:     "Chrono Voyage",
		Desc:     "Old description",
		Favorite: true,
		Extras:   []Extra{{Tag: "mycustom", Inner: "tag"}},
	}
	fresh := &Entry{
		Path: "./a.sfc",
		Name: "Chrono Voyage",
		Desc: "Updated description",
	}

	merged, change := Merge(existing, fresh, PreserveUserEdits)

	assert.Equal(t, "Updated description", merged.Desc)
	assert.True(t, merged.Favorite)
	require.Len(t, merged.Extras, 1)
	assert.Equal(t, "mycustom", merged.Extras[0].Tag)
	assert.Equal(t, []string{"desc"}, change.Updated)
}

func TestMergeRefreshMetadata(t *testing.T) {
	t.Parallel()

	existing := &Entry{
		Path:     "./a.sfc",
		Name:     "Old Name",
		Desc:     "Old description",
		Favorite: true,
		Extras:   []Extra{{Tag: "sortname", Inner: "custom"}},
	}
	fresh := &Entry{Path: "./a.sfc", Name: "New Name"}

	merged, change := Merge(existing, fresh, RefreshMetadata)

	assert.Equal(t, "New Name", merged.Name)
	// empty fresh value never blanks a populated field
	assert.Equal(t, "Old description", merged.Desc)
	// user data survives a refresh, unknown elements do not
	assert.True(t, merged.Favorite)
	assert.Empty(t, merged.Extras)
	assert.Equal(t, []string{"name"}, change.Updated)
}

func TestMergeResetAll(t *testing.T) {
	t.Parallel()

	existing := &Entry{
		Path:     "./a.sfc",
		Name:     "Old Name",
		Favorite: true,
		Extras:   []Extra{{Tag: "sortname", Inner: "custom"}},
	}
	fresh := &Entry{Path: "./a.sfc", Name: "New Name"}

	merged, change := Merge(existing, fresh, ResetAll)

	assert.Equal(t, "New Name", merged.Name)
	assert.False(t, merged.Favorite)
	assert.Empty(t, merged.Extras)
	assert.Equal(t, []string{"name"}, change.Updated)
}

func TestDocumentFindAndUpsert(t *testing.T) {
	t.Parallel()

	doc := &Document{Games: []Entry{{Path: "./a.sfc", Name: "A"}}}

	assert.NotNil(t, doc.Find("a.sfc"))
	assert.NotNil(t, doc.Find("./a.sfc"))
	assert.Nil(t, doc.Find("./b.sfc"))

	isNew := doc.Upsert(Entry{Path: "./b.sfc", Name: "B"})
	assert.True(t, isNew)
	isNew = doc.Upsert(Entry{Path: "./a.sfc", Name: "A2"})
	assert.False(t, isNew)
	assert.Equal(t, "A2", doc.Find("./a.sfc").Name)
	assert.Len(t, doc.Games, 2)
}

func TestCheckPresence(t *testing.T) {
	t.Parallel()

	doc := &Document{Games: []Entry{
		{Path: "./a.sfc"},
		{Path: "./b.sfc"},
		{Path: "./gone.sfc"},
	}}

	report := CheckPresence(doc, map[string]bool{"a.sfc": true, "b.sfc": true})
	assert.Equal(t, 3, report.Entries)
	assert.Equal(t, 2, report.Present)
	assert.InDelta(t, 2.0/3.0, report.Ratio(), 0.0001)
	assert.False(t, report.OK(0.95))
	require.Len(t, report.Orphans, 1)
	assert.Equal(t, "./gone.sfc", report.Orphans[0])
}

func TestCheckPresenceEmptyCatalog(t *testing.T) {
	t.Parallel()

	report := CheckPresence(&Document{}, map[string]bool{})
	assert.InDelta(t, 1.0, report.Ratio(), 0.0001)
	assert.True(t, report.OK(0.95))
}

func TestRemoveEntries(t *testing.T) {
	t.Parallel()

	doc := &Document{Games: []Entry{
		{Path: "./a.sfc", Image: "./media/screenshots/a.png"},
		{Path: "./gone.sfc", Image: "./media/screenshots/gone.png", Thumbnail: "/abs/covers/gone.png"},
	}}

	refs := doc.RemoveEntries([]string{"./gone.sfc"}, "/catalog")

	require.Len(t, doc.Games, 1)
	assert.Equal(t, "./a.sfc", doc.Games[0].Path)
	assert.ElementsMatch(t, []string{
		"/catalog/media/screenshots/gone.png",
		"/abs/covers/gone.png",
	}, refs)
}

func TestMoveOrphans(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/media/snes/covers/orphan.png", []byte("x"), 0o644))

	moved, err := MoveOrphans(fs, []string{"/media/snes/covers/orphan.png"}, "/media", "snes")
	require.NoError(t, err)
	assert.Equal(t, 1, moved)

	exists, _ := afero.Exists(fs, "/media/CLEANUP/snes/covers/orphan.png")
	assert.True(t, exists)
	exists, _ = afero.Exists(fs, "/media/snes/covers/orphan.png")
	assert.False(t, exists)
}

func TestProvenanceRoundTrip(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	path := ProvenancePath("/catalog/gamelist.xml")
	assert.Equal(t, "/catalog/gamelist.provenance.json", path)

	entries := map[string]Provenance{
		"a.sfc": {Source: "ScreenScraper.fr", RomHash: "ABCD", MatchScore: 0.91},
	}
	require.NoError(t, SaveProvenance(fs, path, entries))

	loaded := LoadProvenance(fs, path)
	require.Len(t, loaded, 1)
	assert.Equal(t, "ABCD", loaded["a.sfc"].RomHash)
}

func TestLoadProvenanceCorrupt(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/p.json", []byte("{oops"), 0o644))
	assert.Empty(t, LoadProvenance(fs, "/p.json"))
}
