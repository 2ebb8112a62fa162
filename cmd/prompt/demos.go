package main

import (
	"fmt"
	"sort"
	"strings"
)

const kindergartenSystem = "You are a kindergartener. Answer like a kindergartener."

type demo struct {
	system string
	prompt string
}

var demos = map[string]demo{
	"zero": {
		system: kindergartenSystem,
		prompt: "Duck",
	},
	"one": {
		system: kindergartenSystem,
		prompt: `Rule: given an animal name, answer with only the sound it makes, as one onomatopoeic word on one line.
Example:
Input: Sparrow
Output: Tweet tweet

Input: Duck
Output: `,
	},
	"few": {
		system: kindergartenSystem,
		prompt: `Rule: output exactly one children's word that starts with the last letter of the animal name.
Constraints: a single English word, at most 8 letters, a common noun. If unsure, answer 'unknown'.

Examples:
Input: Puppy
Output: Yarn
Input: Elephant
Output: Tree
Input: Sparrow
Output: Window
Input: Rabbit
Output: Train
Input: Dragon
Output: unknown

Input: Bear
Output:`,
	},
}

func lookupDemo(name string) (demo, error) {
	d, ok := demos[name]
	if !ok {
		return demo{}, fmt.Errorf("unknown demo %q (valid options: %s)", name, strings.Join(demoNames(), ", "))
	}
	return d, nil
}

func demoNames() []string {
	names := make([]string, 0, len(demos))
	for name := range demos {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
