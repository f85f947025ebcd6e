package cli

import "trivia-room-service/internal/domain"

// sampleQuestions is the built-in question bank used when Postgres is not
// configured; swap in the DB-backed loader for real content.
func sampleQuestions() []domain.Question {
	return []domain.Question{
		{
			ID:            1,
			Text:          "What is the capital of France?",
			Options:       []string{"London", "Berlin", "Paris", "Madrid"},
			CorrectOption: 2,
			Category:      "Geography",
		},
		{
			ID:            2,
			Text:          "Which planet is known as the Red Planet?",
			Options:       []string{"Venus", "Mars", "Jupiter", "Saturn"},
			CorrectOption: 1,
			Category:      "Science",
		},
		{
			ID:            3,
			Text:          "Who painted the Mona Lisa?",
			Options:       []string{"Vincent van Gogh", "Leonardo da Vinci", "Pablo Picasso", "Michelangelo"},
			CorrectOption: 1,
			Category:      "Art",
		},
		{
			ID:            4,
			Text:          "What is the largest mammal in the world?",
			Options:       []string{"Elephant", "Blue Whale", "Giraffe", "Hippopotamus"},
			CorrectOption: 1,
			Category:      "Biology",
		},
		{
			ID:            5,
			Text:          "In which year did World War II end?",
			Options:       []string{"1944", "1945", "1946", "1947"},
			CorrectOption: 1,
			Category:      "History",
		},
		{
			ID:            6,
			Text:          "What is the chemical symbol for gold?",
			Options:       []string{"Go", "Gd", "Au", "Ag"},
			CorrectOption: 2,
			Category:      "Chemistry",
		},
		{
			ID:            7,
			Text:          "Which programming language was created by Brendan Eich?",
			Options:       []string{"Python", "JavaScript", "Java", "C++"},
			CorrectOption: 1,
			Category:      "Technology",
		},
		{
			ID:            8,
			Text:          "What is the smallest country in the world?",
			Options:       []string{"Monaco", "San Marino", "Vatican City", "Liechtenstein"},
			CorrectOption: 2,
			Category:      "Geography",
		},
		{
			ID:            9,
			Text:          "Who wrote 'Romeo and Juliet'?",
			Options:       []string{"Charles Dickens", "William Shakespeare", "Jane Austen", "Mark Twain"},
			CorrectOption: 1,
			Category:      "Literature",
		},
		{
			ID:            10,
			Text:          "What is the fastest land animal?",
			Options:       []string{"Lion", "Cheetah", "Leopard", "Gazelle"},
			CorrectOption: 1,
			Category:      "Biology",
		},
	}
}
