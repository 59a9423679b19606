package bot

const greetingText = `Hi, you must be new! I'll need 2 things for you to get started.

(1) Your current location

/setloc <address of current location>
    - Please enter your address or pluscode from google maps.
    - Eg. /setloc 681 race course rd, singapore

(2) Radius in KM

/setradius <number or decimal>
    - Please set your radius in km. Maximum of 5km.
    - Eg. /setradius 1

----------------------------------

Once you have set up these 2, you may use this bot to:
/list
    - List all pokemons within radius of your location

/more
    - Show the next page of the last /list

/monitor
    - Monitor your location and radius and notify you of new spawns for the next 1 hour


Other functions:
/filteriv <0-100>
    - Only show pokemons with at least this IV (default 80)

/clearfilter
    - Remove the IV filter

/settings
    - Check your current location, radius and monitoring settings

/stop
    - Stop the monitoring

/help  or  /start
    - Get back to this screen`

const (
	setLocHelp = `Please set the address of your current location:
/setloc <address>
Eg. /setloc 681 race course rd, singapore
-- You may copy and paste pluscode from google maps if current location is unknown.`

	setRadiusHelp = `Please set your radius limit in km:
/setradius <number or decimal>
Eg. /setradius 1
-- Please set your radius in km. Maximum of 5km.`
)

const (
	unsupportedText   = "Sorry, I can only read text commands. Send /help to see them."
	unknownText       = "Unknown command. Send /help to see what I can do."
	providerErrorText = "The map service is not responding right now. Please try again in a minute."
	internalErrorText = "Something went wrong on my side. Please try again."
	notFoundText      = "Could not find that address. Please check it and /setloc again."
	radiusTooLarge    = "Radius set is greater than 5 km. Please /setradius again."
	radiusInvalid     = "Radius must be a positive number of km, eg. /setradius 1.5"
	thresholdInvalid  = "IV filter must be a whole number from 0 to 100, eg. /filteriv 80"
	nothingFoundText  = "No pokemons found within your radius right now."
	noMoreText        = "Nothing more to show. Send /list to search again."
	filterClearedText = "IV filter cleared."
	noFilterText      = "No IV filter was set."
	stoppedText       = "Monitoring stopped."
	alreadyExpired    = "Monitoring has expired."
	noMonitorText     = "No monitoring was set up."
	notSetText        = "Not set"
)
