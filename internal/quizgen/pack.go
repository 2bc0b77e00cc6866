package quizgen

import (
	"context"
	"fmt"

	"github.com/quizrally/trivia-backend/internal/game"
)

// Pack is a pre-authored question set from the catalog, usable wherever live
// generation is (same output shape, same validation).
type Pack struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Difficulty  game.Difficulty      `json:"difficulty"`
	Questions   []game.QuestionInput `json:"-"`
	Size        int                  `json:"size"`
}

type Catalog struct {
	packs map[string]Pack
	order []string
}

// NewCatalog builds the built-in catalog.
func NewCatalog() *Catalog {
	c := &Catalog{packs: make(map[string]Pack)}
	for _, p := range builtinPacks {
		p.Size = len(p.Questions)
		c.packs[p.ID] = p
		c.order = append(c.order, p.ID)
	}
	return c
}

// List returns the catalog in a stable order.
func (c *Catalog) List() []Pack {
	out := make([]Pack, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.packs[id])
	}
	return out
}

// PackSource adapts one catalog pack to the Source interface. The requested
// count takes the leading questions of the pack; asking for more than the
// pack holds is a generation failure, same as a short AI response.
type PackSource struct {
	catalog *Catalog
	packID  string
}

func (c *Catalog) Source(packID string) *PackSource {
	return &PackSource{catalog: c, packID: packID}
}

func (p *PackSource) Generate(_ context.Context, req Request) ([]game.QuestionInput, error) {
	pack, ok := p.catalog.packs[p.packID]
	if !ok {
		return nil, fmt.Errorf("%w: unknown pack %q", game.ErrGeneration, p.packID)
	}
	if req.Count > len(pack.Questions) {
		return nil, fmt.Errorf("%w: pack %q holds %d questions, %d requested", game.ErrGeneration, p.packID, len(pack.Questions), req.Count)
	}
	qs := make([]game.QuestionInput, req.Count)
	copy(qs, pack.Questions[:req.Count])
	if err := game.ValidateQuestions(qs, req.Count); err != nil {
		return nil, fmt.Errorf("%w: %v", game.ErrGeneration, err)
	}
	return qs, nil
}

var builtinPacks = []Pack{
	{
		ID:          "general-knowledge",
		Name:        "General Knowledge",
		Description: "A bit of everything: geography, history, science and pop culture.",
		Difficulty:  game.DifficultyEasy,
		Questions: []game.QuestionInput{
			{Text: "What is the capital of Australia?", Options: []string{"Sydney", "Canberra", "Melbourne", "Perth"}, CorrectIndex: 1},
			{Text: "How many continents are there?", Options: []string{"Five", "Six", "Seven", "Eight"}, CorrectIndex: 2},
			{Text: "Which planet is known as the Red Planet?", Options: []string{"Venus", "Jupiter", "Mars", "Saturn"}, CorrectIndex: 2},
			{Text: "Who painted the Mona Lisa?", Options: []string{"Michelangelo", "Leonardo da Vinci", "Raphael", "Donatello"}, CorrectIndex: 1},
			{Text: "What is the largest ocean on Earth?", Options: []string{"Atlantic", "Indian", "Arctic", "Pacific"}, CorrectIndex: 3},
			{Text: "In which year did the Titanic sink?", Options: []string{"1905", "1912", "1918", "1923"}, CorrectIndex: 1},
			{Text: "What is the chemical symbol for gold?", Options: []string{"Go", "Gd", "Au", "Ag"}, CorrectIndex: 2},
			{Text: "Which country gifted the Statue of Liberty to the United States?", Options: []string{"United Kingdom", "Spain", "France", "Italy"}, CorrectIndex: 2},
			{Text: "How many strings does a standard guitar have?", Options: []string{"Four", "Five", "Six", "Seven"}, CorrectIndex: 2},
			{Text: "What is the longest river in the world?", Options: []string{"Amazon", "Nile", "Yangtze", "Mississippi"}, CorrectIndex: 1},
		},
	},
	{
		ID:          "science-lab",
		Name:        "Science Lab",
		Description: "Physics, chemistry and biology for the curious.",
		Difficulty:  game.DifficultyMedium,
		Questions: []game.QuestionInput{
			{Text: "What particle carries a negative electric charge?", Options: []string{"Proton", "Neutron", "Electron", "Photon"}, CorrectIndex: 2},
			{Text: "What is the powerhouse of the cell?", Options: []string{"Nucleus", "Ribosome", "Mitochondrion", "Golgi apparatus"}, CorrectIndex: 2},
			{Text: "At what temperature are Celsius and Fahrenheit equal?", Options: []string{"-40 degrees", "0 degrees", "32 degrees", "-32 degrees"}, CorrectIndex: 0},
			{Text: "Which gas makes up most of Earth's atmosphere?", Options: []string{"Oxygen", "Carbon dioxide", "Nitrogen", "Argon"}, CorrectIndex: 2},
			{Text: "What is the hardest natural substance on Earth?", Options: []string{"Quartz", "Diamond", "Topaz", "Corundum"}, CorrectIndex: 1},
			{Text: "How many bones are in the adult human body?", Options: []string{"186", "206", "226", "246"}, CorrectIndex: 1},
			{Text: "What force keeps planets in orbit around the Sun?", Options: []string{"Magnetism", "Friction", "Gravity", "Inertia"}, CorrectIndex: 2},
			{Text: "Which element has the atomic number 1?", Options: []string{"Helium", "Hydrogen", "Lithium", "Carbon"}, CorrectIndex: 1},
		},
	},
	{
		ID:          "movie-night",
		Name:        "Movie Night",
		Description: "Classic and modern cinema trivia.",
		Difficulty:  game.DifficultyMedium,
		Questions: []game.QuestionInput{
			{Text: "Who directed the 1975 film Jaws?", Options: []string{"George Lucas", "Steven Spielberg", "Martin Scorsese", "Francis Ford Coppola"}, CorrectIndex: 1},
			{Text: "Which film features the line 'Here's looking at you, kid'?", Options: []string{"Gone with the Wind", "Citizen Kane", "Casablanca", "The Maltese Falcon"}, CorrectIndex: 2},
			{Text: "In The Matrix, which pill does Neo take?", Options: []string{"Blue", "Red", "Green", "Yellow"}, CorrectIndex: 1},
			{Text: "Which movie won the first Academy Award for Best Picture?", Options: []string{"Wings", "Sunrise", "Metropolis", "The Jazz Singer"}, CorrectIndex: 0},
			{Text: "What is the name of the hobbit played by Elijah Wood in The Lord of the Rings?", Options: []string{"Samwise", "Pippin", "Merry", "Frodo"}, CorrectIndex: 3},
			{Text: "Which composer scored Star Wars?", Options: []string{"Hans Zimmer", "John Williams", "Ennio Morricone", "Jerry Goldsmith"}, CorrectIndex: 1},
			{Text: "What year was Toy Story, the first fully computer-animated feature, released?", Options: []string{"1993", "1995", "1997", "1999"}, CorrectIndex: 1},
			{Text: "Who played the Joker in The Dark Knight?", Options: []string{"Jack Nicholson", "Jared Leto", "Heath Ledger", "Joaquin Phoenix"}, CorrectIndex: 2},
		},
	},
}
