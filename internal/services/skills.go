package services

// skillVocabulary is the closed vocabulary the skill extractor matches
// against. Terms outside this list are dropped on purpose; open-vocabulary
// skill recognition is out of scope.
var skillVocabulary = []string{
	// Languages
	"python", "javascript", "java", "c++", "c#", "ruby", "php", "go", "rust",
	"typescript", "kotlin", "swift", "objective-c", "perl", "scala", "groovy",

	// Web frameworks
	"react", "angular", "vue", "django", "flask", "fastapi", "express", "rails",
	"spring", "asp.net", ".net", "laravel", "nodejs", "node.js",

	// Databases
	"sql", "postgresql", "mysql", "mongodb", "redis", "cassandra", "dynamodb",
	"elasticsearch", "firestore", "oracle", "sqlite",

	// Cloud/DevOps
	"aws", "azure", "gcp", "google cloud", "docker", "kubernetes", "jenkins",
	"gitlab", "github", "terraform", "ansible", "circleci", "travis ci",

	// Data/ML
	"pandas", "numpy", "scikit-learn", "tensorflow", "pytorch", "keras",
	"spark", "hadoop", "tableau", "power bi",

	// Other
	"git", "rest", "graphql", "microservices", "agile", "scrum", "linux",
	"windows", "macos", "html", "css", "xml", "json", "soap", "jira",
	"confluence", "slack", "asana", "monday.com",
}
