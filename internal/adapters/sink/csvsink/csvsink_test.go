package csvsink_test

import (
	"bytes"
	"context"
	"os"
	"testing"
	"time"

	"github.com/okian/macrochart/internal/adapters/sink"
	"github.com/okian/macrochart/internal/adapters/sink/csvsink"
	"github.com/okian/macrochart/internal/domain/series"
	. "github.com/smartystreets/goconvey/convey"
)

func TestEncode(t *testing.T) {
	Convey("Given a single-entity quarterly table", t, func() {
		b := series.NewBuilder(series.Quarterly, "CPI_Growth", "M2_Growth")
		q1 := series.At(time.Date(2020, time.February, 1, 0, 0, 0, 0, time.UTC), series.Quarterly)
		So(b.Add(series.Key{Period: q1}, series.Of(1.5), series.NA()), ShouldBeNil)
		So(b.Add(series.Key{Period: q1.Next()}, series.Undef(), series.Of(-0.25)), ShouldBeNil)
		tbl, err := b.Table()
		So(err, ShouldBeNil)

		var buf bytes.Buffer
		So(csvsink.Encode(&buf, tbl), ShouldBeNil)

		Convey("Then the period indexes rows and gaps are explicit", func() {
			So(buf.String(), ShouldEqual, "period,CPI_Growth,M2_Growth\n"+
				"2020-03-31,1.5,\n"+
				"2020-06-30,undefined,-0.25\n")
		})
	})

	Convey("Given a panel", t, func() {
		b := series.NewBuilder(series.Annual, "Inflation")
		So(b.Add(series.Key{Entity: "Chile", Period: series.Year(2001)}, series.Of(3)), ShouldBeNil)
		tbl, _ := b.Table()
		var buf bytes.Buffer
		So(csvsink.Encode(&buf, tbl), ShouldBeNil)
		So(buf.String(), ShouldEqual, "period,entity,Inflation\n2001,Chile,3\n")
	})
}

func TestSinkWrite(t *testing.T) {
	Convey("Given a sink in a fresh directory", t, func() {
		dir := t.TempDir() + "/out"
		s := csvsink.New(dir)
		b := series.NewBuilder(series.Annual, "x")
		So(b.Add(series.Key{Period: series.Year(1999)}, series.Of(1)), ShouldBeNil)
		tbl, _ := b.Table()

		Convey("When a run is written twice", func() {
			run := sink.Run{ID: "r1", Chart: "demo"}
			So(s.Write(context.Background(), run, tbl), ShouldBeNil)
			So(s.Write(context.Background(), run, tbl), ShouldBeNil)

			Convey("Then one file holds the latest table", func() {
				raw, err := os.ReadFile(s.Path("demo"))
				So(err, ShouldBeNil)
				So(string(raw), ShouldEqual, "period,x\n1999,1\n")
				entries, _ := os.ReadDir(dir)
				So(entries, ShouldHaveLength, 1)
			})
		})
	})
}
