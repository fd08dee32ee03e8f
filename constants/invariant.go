package constants

const (
	// public URL
	PUBLIC_URL = "https://blessyou.today"

	MAX_WISHES_TO_SHOW = 500
	MAX_WISH_LENGTH    = 1000
	MAX_REPLY_LENGTH   = 500
	MAX_TITLE_LENGTH   = 120

	DEFAULT_PAGE_SIZE = 12
	WALL_PAGE_SIZE    = 12

	// author name stored for wishes submitted with the anonymous flag set
	ANONYMOUS_AUTHOR_NAME = "Anonymous"

	POW_DIFFICULTY            = 18
	POW_CHALLENGE_TTL_MINUTES = 10

	DEBUG_MODE = false
)
