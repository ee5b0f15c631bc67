package render

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// EchartsAssetsPrefix is where the HTML pages load the echarts runtime from.
const EchartsAssetsPrefix = "https://go-echarts.github.io/go-echarts-assets/assets/"

// Heatmap writes a self-contained go-echarts HTML page showing g as a heat
// map: occupied cells are 1, free cells 0 and the center cell is 0.5. Row 0
// is drawn at the top, matching Text.
func Heatmap(w io.Writer, g Reader, title string) error {
	axis := g.Axis()
	c := axis / 2

	labels := make([]string, axis)
	for i := range labels {
		labels[i] = strconv.Itoa(i)
	}

	data := make([]opts.HeatMapData, 0, int(axis)*int(axis))
	occupied := 0
	for y := uint8(0); y < axis; y++ {
		for x := uint8(0); x < axis; x++ {
			v := 0.0
			switch {
			case g.Get(x, y):
				v = 1
				occupied++
			case x == c && y == c:
				v = 0.5
			}
			data = append(data, opts.HeatMapData{Value: [3]interface{}{int(x), int(y), v}})
		}
	}

	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Theme: "dark", Width: "900px", Height: "900px", AssetsHost: EchartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("axis=%d occupied=%d", axis, occupied)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Data: labels, Name: "X", SplitArea: &opts.SplitArea{Show: opts.Bool(true)}}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Data: labels, Name: "Y", Inverse: opts.Bool(true), SplitArea: &opts.SplitArea{Show: opts.Bool(true)}}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(false),
			Calculable: opts.Bool(false),
			Min:        0,
			Max:        1,
			InRange:    &opts.VisualMapInRange{Color: []string{"#440154", "#21918c", "#fde725"}},
		}),
	)
	hm.SetXAxis(labels).AddSeries("occupancy", data)

	if err := hm.Render(w); err != nil {
		return fmt.Errorf("render heatmap: %w", err)
	}
	return nil
}
