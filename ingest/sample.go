package ingest

import (
	"sort"
	"time"

	"github.com/warp/kol-dashboard/reconcile"
)

// =============================================================================
// SAMPLE DATASET - Built-in demo data for `source.format: sample`
// =============================================================================

type sampleEntity struct {
	id       int
	name     string
	region   string
	country  string
	lat, lon float64
	start    time.Month
	end      time.Month
	tasks    map[string]float64
}

var sampleEntities = []sampleEntity{
	{101, "Dr. Hana Lee", "Asia", "Korea", 37.57, 126.98, time.January, time.December,
		map[string]float64{"Lecture": 6, "SNS Posting": 12}},
	{102, "Dr. Marco Rossi", "Europe", "Italy", 41.90, 12.50, time.March, time.December,
		map[string]float64{"Case Report": 4, "Webinar": 2}},
	{103, "Dr. Sarah Klein", "Europe", "Germany", 52.52, 13.40, time.January, time.June,
		map[string]float64{"Lecture": 3, "Article": 1}},
	{104, "Dr. Diego Alvarez", "Latin America", "Mexico", 19.43, -99.13, time.February, time.November,
		map[string]float64{"Hands-on course": 4, "Contents creation": 6}},
	{105, "Dr. Aiko Tanaka", "Asia", "Japan", 35.68, 139.69, time.January, time.December,
		map[string]float64{"Clinical Paper": 2, "Webinar": 4}},
	{106, "Dr. James Carter", "North America", "USA", 40.71, -74.01, time.July, time.December,
		map[string]float64{"Lecture": 4}},
}

// sampleActivities lists (entity, activity label, month, week) in log order.
var sampleActivities = []struct {
	id           int
	label, m, wk string
}{
	{101, "Lecture", "Jan", "2w"},
	{101, "Social Media", "Jan", "3w"},
	{101, "Contents creation", "Feb", "1w"},
	{101, "ADF Lecture", "Mar", "2w"},
	{101, "Social engagement", "April", "1w"},
	{101, "Lecture", "May", "4w"},
	{101, "SNS Posting", "June", "2w"},
	{101, "Academy lectures", "August", "3w"},
	{101, "Social Media", "September", "1w"},
	{101, "SNS Posting", "October", "2w"},
	{102, "Clinical case report", "April", "3w"},
	{102, "Webinar", "June", "1w"},
	{102, "T-series case report", "September", "2w"},
	{102, "Testimonial", "October", "1w"},
	{103, "Lecture", "Feb", "2w"},
	{103, "Skill up Seminar", "April", "4w"},
	{103, "Clinical Paper", "May", "1w"},
	{103, "Lecture", "June", "3w"},
	{104, "Hands on training", "Mar", "3w"},
	{104, "ContentsCreation", "May", "2w"},
	{104, "Hands-on course", "July", "1w"},
	{104, "Contents creation", "August", "4w"},
	{104, "Social Media", "Feb", "5w"},
	{105, "Webinar", "Feb", "1w"},
	{105, "Article", "June", "3w"},
	{105, "Webinar", "July", "2w"},
	{105, "Webinar", "October", "4w"},
	{105, "Clinical Paper", "November", "1w"},
	{106, "offline lecture", "August", "2w"},
	{106, "Lecture", "October", "3w"},
}

// Sample returns a small but complete demo dataset for year. Every canonical
// task appears, one activity falls in an undatable week and one label is
// outside the task vocabulary.
func Sample(year int) reconcile.Dataset {
	var ds reconcile.Dataset
	byID := make(map[int]sampleEntity, len(sampleEntities))

	for _, e := range sampleEntities {
		byID[e.id] = e
		start := reconcile.NewDate(year, e.start, 1)
		end := reconcile.EndOfMonth(year, e.end)
		lat, lon := e.lat, e.lon
		for _, task := range sortedTasks(e.tasks) {
			freq := e.tasks[task]
			ds.Plan = append(ds.Plan, reconcile.PlanRecord{
				EntityID:      reconcile.ID(e.id),
				Name:          e.name,
				Region:        e.region,
				Country:       e.country,
				ContractStart: &start,
				ContractEnd:   &end,
				Frequency:     &freq,
				Task:          task,
				Lat:           &lat,
				Lon:           &lon,
			})
		}
	}

	for _, a := range sampleActivities {
		e := byID[a.id]
		ds.Activities = append(ds.Activities, reconcile.ActivityRecord{
			EntityID: reconcile.ID(a.id),
			Activity: a.label,
			Month:    a.m,
			Week:     a.wk,
			Region:   e.region,
			Name:     e.name,
		})
	}
	return ds
}

// NewSampleSource wraps Sample in a Source.
func NewSampleSource(year int) *StaticSource {
	return &StaticSource{Name: "sample", Data: Sample(year)}
}

func sortedTasks(m map[string]float64) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
