package script

// Template returns the seed body written into a fresh script of the given
// language so the user does not start from an empty buffer.
func Template(lang Language) string {
	switch lang {
	case LangPython:
		return "# Query parameters are available via the params dict.\n" +
			"print(\"hello from scriptpad\")"
	default:
		return "// Query parameters are available via the params record.\n" +
			"from(bucket: \"example-bucket\")\n" +
			"    |> range(start: -1h)"
	}
}
