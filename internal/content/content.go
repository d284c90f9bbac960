package content

import "math/rand"

type Joke struct {
	Setup     string
	Punchline string
}

// Tables holds the static entertainment lookup data. Immutable after
// construction; handlers receive it injected so tests can swap in a
// single-element table.
type Tables struct {
	Quotes []string
	Jokes  []Joke
	Facts  []string

	rnd *rand.Rand
}

func New(quotes []string, jokes []Joke, facts []string, seed int64) *Tables {
	return &Tables{
		Quotes: quotes,
		Jokes:  jokes,
		Facts:  facts,
		rnd:    rand.New(rand.NewSource(seed)),
	}
}

// Default returns the built-in tables shipped with the bot.
func Default(seed int64) *Tables {
	return New(defaultQuotes, defaultJokes, defaultFacts, seed)
}

func (t *Tables) RandomQuote() string {
	if len(t.Quotes) == 0 {
		return ""
	}
	return t.Quotes[t.rnd.Intn(len(t.Quotes))]
}

func (t *Tables) RandomJoke() Joke {
	if len(t.Jokes) == 0 {
		return Joke{}
	}
	return t.Jokes[t.rnd.Intn(len(t.Jokes))]
}

func (t *Tables) RandomFact() string {
	if len(t.Facts) == 0 {
		return ""
	}
	return t.Facts[t.rnd.Intn(len(t.Facts))]
}

var defaultQuotes = []string{
	"The only way to do great work is to love what you do.",
	"Innovation distinguishes between a leader and a follower.",
	"Doubt is a luxury I can't afford.",
	"I don't level up. I ascend.",
	"The weak should fear the strong.",
	"Arise!",
}

var defaultJokes = []Joke{
	{
		Setup:     "Why don't skeletons fight each other?",
		Punchline: "They don't have the guts!",
	},
	{
		Setup:     "Why did the hunter bring a ladder to the dungeon?",
		Punchline: "He heard the monsters were on another level!",
	},
	{
		Setup:     "What's the system's favorite programming language?",
		Punchline: "JavaScript, because it loves grinding loops!",
	},
	{
		Setup:     "Why did the healer quit the party?",
		Punchline: "The tank kept saying \"I'll solo it.\"",
	},
}

var defaultFacts = []string{
	"Honey never spoils; edible honey has been found in ancient tombs.",
	"Octopuses have three hearts and blue blood.",
	"A group of flamingos is called a flamboyance.",
	"Bananas are berries, but strawberries are not.",
}
