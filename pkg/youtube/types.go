package youtube

import (
	"regexp"
	"strconv"
	"time"

	"github.com/chowmap/ingest-cli/internal/model"
)

type channelListResponse struct {
	Items []struct {
		ContentDetails struct {
			RelatedPlaylists struct {
				Uploads string `json:"uploads"`
			} `json:"relatedPlaylists"`
		} `json:"contentDetails"`
	} `json:"items"`
}

type playlistItemsResponse struct {
	NextPageToken string `json:"nextPageToken"`
	Items         []struct {
		ContentDetails struct {
			VideoID          string    `json:"videoId"`
			VideoPublishedAt time.Time `json:"videoPublishedAt"`
		} `json:"contentDetails"`
	} `json:"items"`
}

type videoListResponse struct {
	Items []videoItem `json:"items"`
}

type videoItem struct {
	ID      string `json:"id"`
	Snippet struct {
		Title       string    `json:"title"`
		Description string    `json:"description"`
		PublishedAt time.Time `json:"publishedAt"`
		ChannelID   string    `json:"channelId"`
		Tags        []string  `json:"tags"`
		Thumbnails  struct {
			High struct {
				URL string `json:"url"`
			} `json:"high"`
		} `json:"thumbnails"`
	} `json:"snippet"`
	ContentDetails struct {
		Duration string `json:"duration"`
		Caption  string `json:"caption"` // "true" / "false", as strings
	} `json:"contentDetails"`
	RecordingDetails struct {
		LocationDescription string `json:"locationDescription"`
		Location            *struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"location"`
	} `json:"recordingDetails"`
	Localizations map[string]struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	} `json:"localizations"`
	TopicDetails struct {
		TopicCategories []string `json:"topicCategories"`
	} `json:"topicDetails"`
}

func (v videoItem) toModel() model.Video {
	out := model.Video{
		ID:                v.ID,
		Title:             v.Snippet.Title,
		Description:       v.Snippet.Description,
		PublishedAt:       v.Snippet.PublishedAt,
		DurationSeconds:   parseISODuration(v.ContentDetails.Duration),
		CaptionsAvailable: v.ContentDetails.Caption == "true",
		ThumbnailURL:      v.Snippet.Thumbnails.High.URL,
		ChannelID:         v.Snippet.ChannelID,
		Tags:              v.Snippet.Tags,
		Topics:            v.TopicDetails.TopicCategories,
	}

	if len(v.Localizations) > 0 {
		out.Localizations = make(map[string]model.Localization, len(v.Localizations))
		for lang, loc := range v.Localizations {
			out.Localizations[lang] = model.Localization{
				Title:       loc.Title,
				Description: loc.Description,
			}
		}
	}

	rd := v.RecordingDetails
	if rd.Location != nil || rd.LocationDescription != "" {
		rec := &model.RecordingLocation{Description: rd.LocationDescription}
		if rd.Location != nil {
			lat, lng := rd.Location.Latitude, rd.Location.Longitude
			rec.Latitude, rec.Longitude = &lat, &lng
		}
		out.RecordingLocation = rec
	}

	return out
}

var isoDurationRe = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)

// parseISODuration converts the API's ISO-8601 durations ("PT1H2M3S") to
// seconds. Unparseable input yields 0.
func parseISODuration(s string) int {
	m := isoDurationRe.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	h, _ := strconv.Atoi(zeroIfEmpty(m[1]))
	min, _ := strconv.Atoi(zeroIfEmpty(m[2]))
	sec, _ := strconv.Atoi(zeroIfEmpty(m[3]))
	return h*3600 + min*60 + sec
}

func zeroIfEmpty(s string) string {
	if s == "" {
		return "0"
	}
	return s
}
