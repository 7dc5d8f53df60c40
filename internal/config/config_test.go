package config_test

import (
	"path/filepath"
	"testing"

	"github.com/okian/macrochart/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.Workers, convey.ShouldEqual, 1)
			convey.So(cfg.BaseYear, convey.ShouldEqual, 2006)
			convey.So(cfg.PanelSkipRows, convey.ShouldEqual, 4)
			convey.So(cfg.FocusEntity, convey.ShouldEqual, "United States")
			convey.So(cfg.Formats, convey.ShouldResemble, []string{"png"})
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("Then source keys resolve under the data dir", func() {
			convey.So(cfg.SourcePath(config.SourceGDP), convey.ShouldEqual, filepath.Join("Data", "GDP.csv"))
			convey.So(cfg.SourcePath("M2SL"), convey.ShouldEqual, filepath.Join("Data", "M2SL.csv"))

			cfg.Sources[config.SourceGDP] = "/abs/gdp.xlsx"
			convey.So(cfg.SourcePath(config.SourceGDP), convey.ShouldEqual, "/abs/gdp.xlsx")
		})
	})
}
