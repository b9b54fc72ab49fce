package seed

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"
)

type User struct {
	ID         int
	Name       string
	Email      string
	Country    string
	SignedUpAt time.Time
}

type Course struct {
	ID       int
	Title    string
	Category string
	Price    float64
}

type Enrollment struct {
	ID         int
	UserID     int
	CourseID   int
	EnrolledAt time.Time
	Progress   int
	Completed  bool
	AmountPaid float64
}

type Dataset struct {
	Users       []User
	Courses     []Course
	Enrollments []Enrollment
}

var catalog = []Course{
	{Title: "Intro to SQL", Category: "data", Price: 49},
	{Title: "Analytics with DuckDB", Category: "data", Price: 79},
	{Title: "Go for Backend Engineers", Category: "programming", Price: 99},
	{Title: "Python Fundamentals", Category: "programming", Price: 59},
	{Title: "Statistics Refresher", Category: "math", Price: 39},
	{Title: "Linear Algebra Basics", Category: "math", Price: 45},
	{Title: "Product Design 101", Category: "design", Price: 69},
	{Title: "Writing for the Web", Category: "writing", Price: 29},
}

var (
	firstNames = []string{"Ada", "Grace", "Linus", "Margaret", "Alan", "Barbara", "Ken", "Frances", "Dennis", "Radia"}
	lastNames  = []string{"Lovelace", "Hopper", "Torvalds", "Hamilton", "Turing", "Liskov", "Thompson", "Allen", "Ritchie", "Perlman"}
	countries  = []string{"US", "DE", "GB", "IN", "JP", "BR"}
)

// Generator produces the same dataset for the same seed and reference time.
type Generator struct {
	rnd *rand.Rand
	now func() time.Time
}

func NewGenerator(seed int64) *Generator {
	return &Generator{
		rnd: rand.New(rand.NewSource(seed)),
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (g *Generator) Generate(userCount int) Dataset {
	end := g.now().Truncate(time.Second)
	start := end.AddDate(0, 0, -365)

	courses := make([]Course, len(catalog))
	for i, course := range catalog {
		course.ID = i + 1
		courses[i] = course
	}

	dataset := Dataset{Courses: courses}
	for id := 1; id <= userCount; id++ {
		user := g.nextUser(id, start, end)
		dataset.Users = append(dataset.Users, user)

		picked := g.rnd.Perm(len(courses))[:g.rnd.Intn(4)+1]
		for _, index := range picked {
			dataset.Enrollments = append(dataset.Enrollments, g.nextEnrollment(len(dataset.Enrollments)+1, user, courses[index], end))
		}
	}
	return dataset
}

func (g *Generator) nextUser(id int, start, end time.Time) User {
	first := pickOne(g.rnd, firstNames)
	last := pickOne(g.rnd, lastNames)
	return User{
		ID:         id,
		Name:       first + " " + last,
		Email:      fmt.Sprintf("%s.%s%d@example.com", strings.ToLower(first), strings.ToLower(last), id),
		Country:    pickOne(g.rnd, countries),
		SignedUpAt: between(g.rnd, start, end),
	}
}

func (g *Generator) nextEnrollment(id int, user User, course Course, end time.Time) Enrollment {
	progress := g.pickProgress()
	return Enrollment{
		ID:         id,
		UserID:     user.ID,
		CourseID:   course.ID,
		EnrolledAt: between(g.rnd, user.SignedUpAt, end),
		Progress:   progress,
		Completed:  progress == 100,
		AmountPaid: g.pickAmount(course.Price),
	}
}

func (g *Generator) pickProgress() int {
	p := g.rnd.Intn(100)
	switch {
	case p < 20:
		return 0
	case p < 70:
		return g.rnd.Intn(99) + 1
	default:
		return 100
	}
}

// pickAmount applies an occasional discount to the list price.
func (g *Generator) pickAmount(price float64) float64 {
	p := g.rnd.Intn(100)
	switch {
	case p < 10:
		return 0
	case p < 35:
		return round2(price * 0.8)
	default:
		return price
	}
}

func between(r *rand.Rand, start, end time.Time) time.Time {
	seconds := int64(end.Sub(start) / time.Second)
	if seconds <= 0 {
		return start
	}
	return start.Add(time.Duration(r.Int63n(seconds)) * time.Second)
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}

func pickOne(r *rand.Rand, values []string) string {
	return values[r.Intn(len(values))]
}
