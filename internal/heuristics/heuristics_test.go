package heuristics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/kartal788/dftest/pkg/errors"
)

func TestResolutionPriority(t *testing.T) {
	tests := []struct {
		label string
		want  int
	}{
		{"2160p", 2160},
		{"4K", 2160},
		{"UHD", 2160},
		{"1080p", 1080},
		{"FHD", 1080},
		{"720p", 720},
		{"HD", 720},
		{"480p", 480},
		{"SD", 480},
		{"360p", 360},
		{"randomname", 1},
		{"", 1},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolutionPriority(tt.label))
		})
	}
}

func TestParseSizeMB(t *testing.T) {
	tests := []struct {
		size string
		want float64
	}{
		{"1.5GB", 1536},
		{"700MB", 700},
		{"", 0},
		{"garbage", 0},
		{"UNKNOWN", 0},
		{"1.5 GiB", 1536},
		{"2 gb", 2048},
		{"512KB", 0.5},
		{"1,5 GB", 1536},
	}

	for _, tt := range tests {
		t.Run(tt.size, func(t *testing.T) {
			assert.InDelta(t, tt.want, ParseSizeMB(tt.size), 0.0001)
		})
	}
}

func TestFormatSizeRoundTrip(t *testing.T) {
	// Arrange
	bytes := uint64(1536) << 20

	// Act
	formatted := FormatSize(bytes)

	// Assert
	assert.Equal(t, "1.5 GiB", formatted)
	assert.InDelta(t, 1536.0, ParseSizeMB(formatted), 0.0001)
}

func TestDetectPlatform(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		group    string
		want     string
		found    bool
	}{
		{"netflix short tag", "Show.S01E01.1080p.NF.WEB-DL", "", "Netflix", true},
		{"blutv maps to max", "Movie.2023.BluTV.1080p", "", "Max", true},
		{"disney plus", "Film.2021.DISNEY+.WEB-DL.720p", "", "Disney", true},
		{"apple tv", "Dizi.S02E03.ATVP.2160p", "", "Tv+", true},
		{"amazon in group", "Film.2020.1080p.WEB-DL", "AMZN", "Amazon", true},
		{"substring does not match", "Conference.2019.1080p", "", "", false},
		{"nothing", "Home.Video.mkv", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DetectPlatform(tt.filename, tt.group)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetectPlatformsKeepsRuleOrder(t *testing.T) {
	got := DetectPlatforms(
		"Show.S01E01.AMZN.1080p",
		"Show.S01E02.NF.1080p",
		"Show.S01E03.NF.720p",
	)

	assert.Equal(t, []string{"Netflix", "Amazon"}, got)
}

func TestNormalizePlatform(t *testing.T) {
	label, ok := NormalizePlatform("tv+")
	require.True(t, ok)
	assert.Equal(t, "Tv+", label)

	label, ok = NormalizePlatform("netflix")
	require.True(t, ok)
	assert.Equal(t, "Netflix", label)

	_, ok = NormalizePlatform("vimeo")
	assert.False(t, ok)
}

func TestNormalizeGenres(t *testing.T) {
	got := NormalizeGenres([]string{"Action", "Science Fiction", "Aksiyon", "Anime", ""})

	assert.Equal(t, []string{"Aksiyon", "Bilim Kurgu", "Anime"}, got)
}

func TestParseEmptyName(t *testing.T) {
	_, err := Parse("   ")

	require.Error(t, err)
	assert.True(t, apperrors.IsParseFailure(err))
}

func TestResolutionLabelFallsBackToQualityLabel(t *testing.T) {
	assert.Equal(t, "720p", ResolutionLabel("", "720p"))
	assert.Equal(t, "", ResolutionLabel("", ""))
}
