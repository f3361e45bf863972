package search

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const mdSeed = `# Enoteca Rossi
city: Florence

| Name | Producer | Vintage | Region | Grape | Type | Price | Ratings |
|------|:--------:|--------:|--------|-------|------|-------|---------|
| Chianti Classico DOCG | Castello di Ama | 2019 | Toscana | Sangiovese | Red | €48 | 4, 5 |
| Vermentino | - |  | Bolgheri | Vermentino | white | 30 | |

## Bar Nord
| wine | winery | year |
|---|---|---|
| Barolo Riserva | Giacomo Conterno | 2018 |
|  | nameless | 2001 |
`

func TestParseMarkdownSeed(t *testing.T) {
	venues, err := ParseMarkdownSeed(strings.NewReader(mdSeed))
	require.NoError(t, err)
	require.Len(t, venues, 2)

	v := venues[0]
	require.Equal(t, "Enoteca Rossi", v.Name)
	require.Equal(t, "Florence", v.City)
	require.Len(t, v.Wines, 2)
	require.Equal(t, SeedWine{
		Name: "Chianti Classico DOCG", Producer: "Castello di Ama", Vintage: 2019,
		Region: "Toscana", Grape: "Sangiovese", Type: "red", Price: 48, Ratings: []int{4, 5},
	}, v.Wines[0])
	require.Equal(t, "", v.Wines[1].Producer)
	require.Equal(t, 0, v.Wines[1].Vintage)

	require.Equal(t, "Bar Nord", venues[1].Name)
	require.Len(t, venues[1].Wines, 1, "rows without a name are dropped")
	require.Equal(t, 2018, venues[1].Wines[0].Vintage)
}

func TestParseMarkdownSeed_Errors(t *testing.T) {
	_, err := ParseMarkdownSeed(strings.NewReader("| name |\n|---|\n| x |\n"))
	require.ErrorContains(t, err, "before any venue heading")

	_, err = ParseMarkdownSeed(strings.NewReader("# V\n| name | vintage |\n|---|---|\n| x | old |\n"))
	require.ErrorContains(t, err, "line 4")

	_, err = ParseMarkdownSeed(strings.NewReader("# V\n| name | ratings |\n|---|---|\n| x | 7 |\n"))
	require.ErrorContains(t, err, "outside 1..5")
}

func TestParseYAMLSeed(t *testing.T) {
	doc := `
venues:
  - name: Enoteca Rossi
    city: Florence
    wines:
      - name: Brunello di Montalcino
        producer: Biondi-Santi
        vintage: 2016
        price: 190
        ratings: [5]
  - name: "  "
    wines:
      - name: ignored
`
	venues, err := ParseYAMLSeed(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, venues, 1)
	require.Equal(t, "Biondi-Santi", venues[0].Wines[0].Producer)
	require.Equal(t, []int{5}, venues[0].Wines[0].Ratings)

	_, err = ParseYAMLSeed(strings.NewReader("venues: [{name: x, wines: [{name: y, price: -1}]}]"))
	require.ErrorContains(t, err, "negative price")

	venues, err = ParseYAMLSeed(strings.NewReader(""))
	require.NoError(t, err)
	require.Empty(t, venues)
}

func TestLoadSeed_PicksParserByExtension(t *testing.T) {
	dir := t.TempDir()
	md := filepath.Join(dir, "wines.md")
	yml := filepath.Join(dir, "wines.yaml")
	require.NoError(t, os.WriteFile(md, []byte(mdSeed), 0o600))
	require.NoError(t, os.WriteFile(yml, []byte("venues:\n  - name: Y\n    wines:\n      - name: Z\n"), 0o600))

	venues, err := LoadSeed(md)
	require.NoError(t, err)
	require.Len(t, venues, 2)

	venues, err = LoadSeed(yml)
	require.NoError(t, err)
	require.Equal(t, "Z", venues[0].Wines[0].Name)

	_, err = LoadSeed(filepath.Join(dir, "missing.md"))
	require.Error(t, err)
}
