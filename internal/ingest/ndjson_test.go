package ingest

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name string `json:"name"`
}

func TestReaderSkipsBlankLines(t *testing.T) {
	input := "{\"name\":\"a\"}\n\n   \n{\"name\":\"b\"}\r\n{\"name\":\"c\"}"
	rd := NewReader[sample](strings.NewReader(input))

	var names []string
	var lines []int
	for {
		rec, line, err := rd.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		names = append(names, rec.Name)
		lines = append(lines, line)
	}

	assert.Equal(t, []string{"a", "b", "c"}, names)
	assert.Equal(t, []int{1, 4, 5}, lines)
}

func TestReaderFailsFastWithLineNumber(t *testing.T) {
	input := "{\"name\":\"a\"}\n{\"name\":\n{\"name\":\"c\"}\n"

	var seen []string
	err := ReadAll(strings.NewReader(input), func(rec sample, _ int) {
		seen = append(seen, rec.Name)
	})

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 2, perr.Line)
	assert.Contains(t, err.Error(), "line 2")
	assert.Equal(t, []string{"a"}, seen, "records after the bad line must not be read")

	_, _, again := (&Reader[sample]{err: err}).Next()
	assert.Equal(t, err, again)
}

func TestReadAllEmptyInput(t *testing.T) {
	calls := 0
	err := ReadAll(strings.NewReader("\n\n"), func(sample, int) { calls++ })
	require.NoError(t, err)
	assert.Zero(t, calls)
}

func TestReadEventPagesMapsHistoricalShapes(t *testing.T) {
	input := strings.Join([]string{
		`{"venue":"Smalls","url":"https://smalls.example/e/1","event_title":"Late Set","event_logline":"After hours","dates_and_times":[{"date":"06-01","time":"23:30"}],"performers":[{"name":"Jane Smith","instrument":"Piano"}]}`,
		`{"venue":"Smalls","events_url":"https://smalls.example/e/2","event_name":"Early Set","dates_and_times":[{"date":"2025-06-02","time":null}],"performers":[{"name":"John Doe"}]}`,
		`{"venue":"Mezzrow","venue_url":"https://mezzrow.example","url":"https://mezzrow.example/e/3","event_title":null,"dates_and_times":[]}`,
	}, "\n")

	pages, err := ReadEventPages(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, pages, 3)

	assert.Equal(t, "Late Set", pages[0].Title)
	assert.Equal(t, "https://smalls.example/e/1", pages[0].URL)
	assert.Equal(t, "After hours", pages[0].Logline)
	assert.Equal(t, []DateSlot{{Date: "06-01", Time: "23:30"}}, pages[0].Slots)
	assert.Equal(t, []PerformerRecord{{Name: "Jane Smith", Instrument: "Piano"}}, pages[0].Performers)

	assert.Equal(t, "Early Set", pages[1].Title)
	assert.Equal(t, "https://smalls.example/e/2", pages[1].URL)
	assert.Equal(t, []DateSlot{{Date: "2025-06-02"}}, pages[1].Slots)

	assert.Empty(t, pages[2].Title)
	assert.Equal(t, "https://mezzrow.example", pages[2].VenueURL)
	assert.Equal(t, 3, pages[2].Line)
}

func TestReadEventPagesToleratesOddOptionalFields(t *testing.T) {
	input := `{"venue":"Smalls","event_title":"Late Set","event_logline":{"text":"x"},"dates_and_times":[{"date":"06-01","time":2130}],"performers":[{"name":"Jane Smith","instrument":null}]}`

	pages, err := ReadEventPages(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Empty(t, pages[0].Logline)
	assert.Equal(t, "2130", pages[0].Slots[0].Time)
	assert.Empty(t, pages[0].Performers[0].Instrument)
}

func TestReadArtistRecordsYoutubeShapes(t *testing.T) {
	input := strings.Join([]string{
		`{"artist_name":"John Doe","website":"https://johndoe.example","youtube_urls":["https://yt/1","https://yt/2"],"spotify_top_track":"Blue Line"}`,
		`{"artist_name":"Jane Smith","youtube_search_results":[{"watch_url":"https://yt/3"},{"watch_url":""},{"watch_url":"https://yt/4"}]}`,
		`{"artist_name":"Nobody"}`,
	}, "\n")

	recs, err := ReadArtistRecords(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, recs, 3)

	assert.Equal(t, []string{"https://yt/1", "https://yt/2"}, recs[0].YoutubeURLs)
	assert.Equal(t, "Blue Line", recs[0].SpotifyTopTrack)
	assert.Equal(t, []string{"https://yt/3", "https://yt/4"}, recs[1].YoutubeURLs)
	assert.NotNil(t, recs[2].YoutubeURLs)
	assert.Empty(t, recs[2].YoutubeURLs)
}

func TestMissingField(t *testing.T) {
	assert.Equal(t, "", missingField(EventPage{Venue: "Smalls", Title: "Late Set"}))
	assert.Equal(t, "title", missingField(EventPage{Venue: "Smalls"}))
	assert.Equal(t, "venue", missingField(EventPage{Title: "Late Set"}))
	assert.Equal(t, "name", missingField(ArtistRecord{}))
}
