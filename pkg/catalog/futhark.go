package catalog

import "github.com/amutnick/Runecast/pkg/domain"

// ElderFuthark is the 24-rune Elder Futhark. Symmetric runes carry the same
// meaning in both orientations and are therefore not reversible.
var ElderFuthark = []domain.Rune{
	{
		Name: "Fehu", Symbol: "ᚠ",
		Keywords:         []string{"wealth", "abundance", "success"},
		Meaning:          "Wealth, prosperity and the energy to achieve your goals. Fehu speaks of earned abundance and the responsibility to share it.",
		ReversedKeywords: []string{"loss", "greed", "failure"},
		ReversedMeaning:  "Loss of property or self-esteem. Something you put effort into is slipping away; guard against greed and discord.",
	},
	{
		Name: "Uruz", Symbol: "ᚢ",
		Keywords:         []string{"strength", "vitality", "courage"},
		Meaning:          "Untamed strength, health and endurance. Like the wild aurochs, you have the vitality to push through change.",
		ReversedKeywords: []string{"weakness", "illness", "brutality"},
		ReversedMeaning:  "Weakness, poor health or misdirected force. Your strength may be used against you or by others.",
	},
	{
		Name: "Thurisaz", Symbol: "ᚦ",
		Keywords:         []string{"reaction", "defense", "conflict"},
		Meaning:          "Thor's hammer: a reactive force that clears obstacles. A time for defense, catharsis and deliberate action.",
		ReversedKeywords: []string{"danger", "defenselessness", "malice"},
		ReversedMeaning:  "Danger, compulsion or betrayal. Beware of acting out of spite or being pushed into a conflict you did not choose.",
	},
	{
		Name: "Ansuz", Symbol: "ᚨ",
		Keywords:         []string{"communication", "wisdom", "insight"},
		Meaning:          "The breath of Odin: messages, inspiration and wise counsel. Listen closely, signs and advice are coming.",
		ReversedKeywords: []string{"misunderstanding", "delusion", "manipulation"},
		ReversedMeaning:  "Misunderstanding, deceit or manipulation. Words may mislead; question the source before you trust it.",
	},
	{
		Name: "Raidho", Symbol: "ᚱ",
		Keywords:         []string{"journey", "rhythm", "evolution"},
		Meaning:          "Travel, movement and right order. A journey, literal or spiritual, unfolds at its proper pace.",
		ReversedKeywords: []string{"crisis", "rigidity", "disruption"},
		ReversedMeaning:  "Disruption, stasis or a journey gone astray. Plans stall; reconsider the road you are on.",
	},
	{
		Name: "Kenaz", Symbol: "ᚲ",
		Keywords:         []string{"vision", "creativity", "knowledge"},
		Meaning:          "The torch: illumination, creativity and revelation. Knowledge arrives and lights the way forward.",
		ReversedKeywords: []string{"darkness", "disillusion", "lack of creativity"},
		ReversedMeaning:  "A fading light. Creative blocks, false hope or the end of something once warm.",
	},
	{
		Name: "Gebo", Symbol: "ᚷ",
		Keywords:        []string{"gifts", "generosity", "partnership"},
		Meaning:         "Gifts exchanged in balance: partnership, generosity and the bonds that sacrifice creates.",
		ReversedMeaning: "Gifts exchanged in balance: partnership, generosity and the bonds that sacrifice creates.",
	},
	{
		Name: "Wunjo", Symbol: "ᚹ",
		Keywords:         []string{"joy", "comfort", "harmony"},
		Meaning:          "Joy, fellowship and harmony. Comfort is earned and shared with those around you.",
		ReversedKeywords: []string{"sorrow", "strife", "alienation"},
		ReversedMeaning:  "Sorrow, strife or alienation. Joy feels distant; look at what is keeping you apart from others.",
	},
	{
		Name: "Hagalaz", Symbol: "ᚺ",
		Keywords:        []string{"disruption", "nature's fury", "testing"},
		Meaning:         "Hail: uncontrolled forces of nature that disrupt and then clear. A trial that leads to renewal.",
		ReversedMeaning: "Hail: uncontrolled forces of nature that disrupt and then clear. A trial that leads to renewal.",
	},
	{
		Name: "Nauthiz", Symbol: "ᚾ",
		Keywords:         []string{"need", "restriction", "endurance"},
		Meaning:          "Need and constraint. Hardship teaches self-reliance; patience is required.",
		ReversedKeywords: []string{"deprivation", "want", "toil"},
		ReversedMeaning:  "Deprivation and drudgery. Needs go unmet; examine what you truly require.",
	},
	{
		Name: "Isa", Symbol: "ᛁ",
		Keywords:        []string{"ice", "stillness", "pause"},
		Meaning:         "Ice: a standstill. Things are frozen for now; wait, reflect and let the thaw come in its time.",
		ReversedMeaning: "Ice: a standstill. Things are frozen for now; wait, reflect and let the thaw come in its time.",
	},
	{
		Name: "Jera", Symbol: "ᛃ",
		Keywords:        []string{"harvest", "cycles", "reward"},
		Meaning:         "The harvest: rewards that follow effort. Cycles turn and what was sown is reaped.",
		ReversedMeaning: "The harvest: rewards that follow effort. Cycles turn and what was sown is reaped.",
	},
	{
		Name: "Eihwaz", Symbol: "ᛇ",
		Keywords:        []string{"endurance", "defense", "transformation"},
		Meaning:         "The yew tree: endurance, protection and the bridge between life and death. Trust in resilience.",
		ReversedMeaning: "The yew tree: endurance, protection and the bridge between life and death. Trust in resilience.",
	},
	{
		Name: "Perthro", Symbol: "ᛈ",
		Keywords:         []string{"mystery", "fate", "chance"},
		Meaning:          "The lot cup of the Norns: mysteries, fate and hidden things. What is concealed may be revealed.",
		ReversedKeywords: []string{"stagnation", "loneliness", "addiction"},
		ReversedMeaning:  "Secrets kept too long, stagnation or a gamble gone wrong. Faith in fate falters.",
	},
	{
		Name: "Algiz", Symbol: "ᛉ",
		Keywords:         []string{"protection", "shield", "higher self"},
		Meaning:          "Protection and a connection with the divine. A shield is raised over you; follow your instincts.",
		ReversedKeywords: []string{"hidden danger", "vulnerability", "loss of defense"},
		ReversedMeaning:  "Hidden danger or vulnerability. Your defenses are down; take care not to be consumed by others.",
	},
	{
		Name: "Sowilo", Symbol: "ᛊ",
		Keywords:        []string{"sun", "success", "vitality"},
		Meaning:         "The sun: success, health and life force. Goals are achieved through clarity and will.",
		ReversedMeaning: "The sun: success, health and life force. Goals are achieved through clarity and will.",
	},
	{
		Name: "Tiwaz", Symbol: "ᛏ",
		Keywords:         []string{"justice", "honor", "sacrifice"},
		Meaning:          "Tyr's rune: justice, honor and leadership. Victory through self-sacrifice and right action.",
		ReversedKeywords: []string{"injustice", "imbalance", "defeat"},
		ReversedMeaning:  "Injustice, defeat or a loss of motivation. Energy drains away in fruitless conflict.",
	},
	{
		Name: "Berkano", Symbol: "ᛒ",
		Keywords:         []string{"birth", "growth", "renewal"},
		Meaning:          "The birch: birth, fertility and new beginnings. Growth, personal or in a family, is nurtured.",
		ReversedKeywords: []string{"stagnation", "anxiety", "carelessness"},
		ReversedMeaning:  "Stagnation and worry about home or family. Growth is blocked by carelessness or anxiety.",
	},
	{
		Name: "Ehwaz", Symbol: "ᛖ",
		Keywords:         []string{"movement", "trust", "teamwork"},
		Meaning:          "The horse: movement, trust and partnership. Progress comes through loyal cooperation.",
		ReversedKeywords: []string{"restlessness", "mistrust", "betrayal"},
		ReversedMeaning:  "Restlessness or mistrust. A partnership falters or change is forced too quickly.",
	},
	{
		Name: "Mannaz", Symbol: "ᛗ",
		Keywords:         []string{"humanity", "self", "community"},
		Meaning:          "Humankind: the self within community. Cooperation, awareness of mortality and shared purpose.",
		ReversedKeywords: []string{"isolation", "self-delusion", "cunning"},
		ReversedMeaning:  "Isolation and self-delusion. You may be seeing yourself or others falsely.",
	},
	{
		Name: "Laguz", Symbol: "ᛚ",
		Keywords:         []string{"water", "intuition", "flow"},
		Meaning:          "Water: intuition, dreams and the unconscious. Go with the flow and trust your inner voice.",
		ReversedKeywords: []string{"confusion", "fear", "poor judgment"},
		ReversedMeaning:  "Confusion and fear. Intuition is clouded; avoid decisions made in emotional turmoil.",
	},
	{
		Name: "Ingwaz", Symbol: "ᛜ",
		Keywords:        []string{"fertility", "completion", "inner growth"},
		Meaning:         "The seed of Ing: gestation, completion and internal growth. A phase ends and a new one begins.",
		ReversedMeaning: "The seed of Ing: gestation, completion and internal growth. A phase ends and a new one begins.",
	},
	{
		Name: "Dagaz", Symbol: "ᛞ",
		Keywords:        []string{"dawn", "breakthrough", "awakening"},
		Meaning:         "Daybreak: awakening, clarity and breakthrough. The light of a new day transforms what was.",
		ReversedMeaning: "Daybreak: awakening, clarity and breakthrough. The light of a new day transforms what was.",
	},
	{
		Name: "Othala", Symbol: "ᛟ",
		Keywords:         []string{"heritage", "home", "inheritance"},
		Meaning:          "Ancestral property and heritage. What truly belongs to you, including spiritual inheritance.",
		ReversedKeywords: []string{"rootlessness", "prejudice", "bad karma"},
		ReversedMeaning:  "Rootlessness or clinging to the past. Old family patterns or prejudice hold you back.",
	},
}

// Spreads are the built-in layouts.
var Spreads = []domain.Spread{
	{Name: "Single Rune", Description: "A single rune for daily guidance or a quick answer to a focused question.", RuneCount: 1},
	{Name: "Three Norns", Description: "Urd, Verdandi and Skuld: what has been, what is becoming and what shall be.", RuneCount: 3},
	{Name: "Five Rune Cross", Description: "The situation, its challenge, its root, the past and the likely outcome.", RuneCount: 5},
	{Name: "Nine Worlds", Description: "One rune for each realm of Yggdrasil, a deep reading for major life questions.", RuneCount: 9},
}
